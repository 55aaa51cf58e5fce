package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"alpr-service/internal/http/middleware"
	"alpr-service/internal/service"
)

type Handler struct {
	ingestService       *service.IngestService
	correctionService   *service.CorrectionService
	notificationService *service.NotificationService
	reportService       *service.ReportService
	tagService          *service.TagService
	log                 zerolog.Logger
}

func NewHandler(
	ingestService *service.IngestService,
	correctionService *service.CorrectionService,
	notificationService *service.NotificationService,
	reportService *service.ReportService,
	tagService *service.TagService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		ingestService:       ingestService,
		correctionService:   correctionService,
		notificationService: notificationService,
		reportService:       reportService,
		tagService:          tagService,
		log:                 log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware, apiKeyMiddleware gin.HandlerFunc) {
	// Camera-facing ingestion authenticates with a static key.
	ingest := r.Group("/api")
	ingest.Use(apiKeyMiddleware)
	{
		ingest.POST("/plate-reads", h.ingestPlateRead)
	}

	api := r.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/plates", h.listPlates)
		api.GET("/flagged-plates", h.listFlaggedPlates)
		api.DELETE("/plates/:plate", h.removePlate)
		api.PUT("/plates/:plate/flag", h.togglePlateFlag)
		api.GET("/plates/:plate/history", h.getPlateHistory)
		api.GET("/plates/:plate/insights", h.getPlateInsights)
		api.PUT("/plates/:plate/misreads", h.setMisreads)
		api.DELETE("/plates/:plate/misread-reads", h.deleteMisreadReads)
		api.POST("/plates/:plate/tags", h.addTagToPlate)
		api.DELETE("/plates/:plate/tags/:tag", h.removeTagFromPlate)
		api.POST("/correct-all", h.correctAllReads)

		api.GET("/reads", h.listReads)
		api.DELETE("/reads/:id", h.deleteRead)
		api.PUT("/reads/:id/correct", h.correctRead)

		api.GET("/known-plates", h.listKnownPlates)
		api.DELETE("/known-plates/:plate", h.removeKnownPlate)

		api.GET("/tags", h.listTags)
		api.POST("/tags", h.createTag)
		api.PUT("/tags/:name", h.updateTag)
		api.DELETE("/tags/:name", h.deleteTag)

		api.GET("/notifications", h.listNotifications)
		api.POST("/notifications", h.addNotification)
		api.PUT("/notifications/:plate/priority", h.setNotificationPriority)
		api.PUT("/notifications/:plate/enabled", h.setNotificationEnabled)
		api.DELETE("/notifications/:plate", h.deleteNotification)

		api.GET("/metrics", h.getMetrics)
		api.GET("/cameras", h.listCameraNames)
	}
}

func (h *Handler) ingestPlateRead(c *gin.Context) {
	var req struct {
		Memo        string  `json:"memo"`
		PlateNumber string  `json:"plate_number"`
		Timestamp   string  `json:"timestamp"`
		ImageData   *string `json:"image_data"`
		CameraName  *string `json:"camera_name"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	input := service.IngestInput{
		Memo:        req.Memo,
		PlateNumber: req.PlateNumber,
		ImageData:   req.ImageData,
		CameraName:  req.CameraName,
	}
	if req.Timestamp != "" {
		ts, err := parseTime(req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid timestamp"))
			return
		}
		input.Timestamp = &ts
	}

	result, err := h.ingestService.ProcessEvent(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	// All candidates already stored for this exact timestamp.
	if len(result.Processed) == 0 {
		c.JSON(http.StatusConflict, successResponse(result))
		return
	}

	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) listPlates(c *gin.Context) {
	query := service.PlateListQuery{
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 25),
		SortField: strings.TrimSpace(c.Query("sort_field")),
		SortOrder: strings.TrimSpace(c.Query("sort_order")),
		Search:    strings.TrimSpace(c.Query("search")),
		Tag:       strings.TrimSpace(c.Query("tag")),
	}

	if raw := c.Query("date_from"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			query.DateFrom = &t
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			query.DateTo = &t
		}
	}

	result, err := h.reportService.ListPlates(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) listReads(c *gin.Context) {
	query := service.ReadListQuery{
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "page_size", 25),
		PlateSearch: strings.TrimSpace(c.Query("search")),
		FuzzySearch: c.Query("fuzzy") == "true",
		CameraName:  strings.TrimSpace(c.Query("camera")),
		Tag:         strings.TrimSpace(c.Query("tag")),
	}

	if raw := c.Query("date_from"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			query.DateFrom = &t
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			query.DateTo = &t
		}
	}

	result, err := h.reportService.ListReads(c.Request.Context(), query)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) getPlateHistory(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	history, err := h.reportService.PlateHistory(c.Request.Context(), plate)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(history))
}

func (h *Handler) getPlateInsights(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	insights, err := h.reportService.PlateInsights(c.Request.Context(), plate)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(insights))
}

func (h *Handler) correctRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid read id"))
		return
	}

	var req struct {
		PlateNumber string `json:"plate_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.correctionService.CorrectOne(c.Request.Context(), id, req.PlateNumber); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"corrected": true}))
}

func (h *Handler) correctAllReads(c *gin.Context) {
	var req struct {
		OldPlateNumber string `json:"old_plate_number" binding:"required"`
		NewPlateNumber string `json:"new_plate_number" binding:"required"`
		RemovePrevious bool   `json:"remove_previous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	err := h.correctionService.CorrectAll(c.Request.Context(), req.OldPlateNumber, req.NewPlateNumber, req.RemovePrevious)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"corrected": true}))
}

func (h *Handler) setMisreads(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	var req struct {
		Name     *string  `json:"name"`
		Notes    *string  `json:"notes"`
		Misreads []string `json:"misreads"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.correctionService.SetMisreads(c.Request.Context(), plate, req.Name, req.Notes, req.Misreads); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": true}))
}

func (h *Handler) listKnownPlates(c *gin.Context) {
	plates, err := h.reportService.KnownPlates(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(plates))
}

func (h *Handler) removeKnownPlate(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	if err := h.correctionService.RemoveKnownPlate(c.Request.Context(), plate); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"removed": true}))
}

func (h *Handler) removePlate(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}
	// Purging a plate and its whole history is admin-only.
	if !principal.IsAdmin() {
		c.JSON(http.StatusForbidden, errorResponse(service.ErrPermissionDenied.Error()))
		return
	}

	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	if err := h.correctionService.RemovePlate(c.Request.Context(), plate); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"removed": true}))
}

func (h *Handler) deleteRead(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid read id"))
		return
	}

	if err := h.correctionService.DeleteRead(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": true}))
}

func (h *Handler) deleteMisreadReads(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	if err := h.correctionService.DeleteMisreadReads(c.Request.Context(), plate); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": true}))
}

func (h *Handler) togglePlateFlag(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if plate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid plate number"))
		return
	}

	var req struct {
		Flagged *bool `json:"flagged" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.correctionService.ToggleFlag(c.Request.Context(), plate, *req.Flagged); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"flagged": *req.Flagged}))
}

func (h *Handler) listFlaggedPlates(c *gin.Context) {
	flagged, err := h.reportService.FlaggedPlates(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(flagged))
}

func (h *Handler) listTags(c *gin.Context) {
	tags, err := h.tagService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(tags))
}

func (h *Handler) createTag(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	tag, err := h.tagService.Create(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(tag))
}

func (h *Handler) updateTag(c *gin.Context) {
	var req struct {
		Color string `json:"color" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.tagService.UpdateColor(c.Request.Context(), c.Param("name"), req.Color); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": true}))
}

func (h *Handler) deleteTag(c *gin.Context) {
	if err := h.tagService.Delete(c.Request.Context(), c.Param("name")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": true}))
}

func (h *Handler) addTagToPlate(c *gin.Context) {
	var req struct {
		Tag string `json:"tag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.tagService.AddToPlate(c.Request.Context(), c.Param("plate"), req.Tag); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"added": true}))
}

func (h *Handler) removeTagFromPlate(c *gin.Context) {
	if err := h.tagService.RemoveFromPlate(c.Request.Context(), c.Param("plate"), c.Param("tag")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"removed": true}))
}

func (h *Handler) listNotifications(c *gin.Context) {
	views, err := h.notificationService.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(views))
}

func (h *Handler) addNotification(c *gin.Context) {
	var req struct {
		PlateNumber string `json:"plate_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	watch, err := h.notificationService.Add(c.Request.Context(), req.PlateNumber)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(watch))
}

func (h *Handler) setNotificationPriority(c *gin.Context) {
	var req struct {
		Priority *int `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.notificationService.SetPriority(c.Request.Context(), c.Param("plate"), *req.Priority); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": true}))
}

func (h *Handler) setNotificationEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.notificationService.SetEnabled(c.Request.Context(), c.Param("plate"), *req.Enabled); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"updated": true}))
}

func (h *Handler) deleteNotification(c *gin.Context) {
	if err := h.notificationService.Delete(c.Request.Context(), c.Param("plate")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"deleted": true}))
}

func (h *Handler) getMetrics(c *gin.Context) {
	metrics, err := h.reportService.Metrics(c.Request.Context(), time.Now().UTC())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(metrics))
}

func (h *Handler) listCameraNames(c *gin.Context) {
	names, err := h.reportService.CameraNames(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(names))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}
