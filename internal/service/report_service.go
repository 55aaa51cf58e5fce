package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"alpr-service/internal/extract"
	"alpr-service/internal/match"
	"alpr-service/internal/model"
	"alpr-service/internal/repository"
	"alpr-service/internal/timefmt"
)

const defaultPageSize = 25

// ReportService builds the read-model views: the rolled-up plate listing,
// the reads listing, per-plate history/insights and dashboard metrics.
// The roll-up is computed from named query steps (plates, known-plate graph,
// per-plate read stats, tag map) merged in memory.
type ReportService struct {
	plateRepo      *repository.PlateRepository
	readRepo       *repository.ReadRepository
	knownPlateRepo *repository.KnownPlateRepository
	tagRepo        *repository.TagRepository
	settings       Settings
}

func NewReportService(
	plateRepo *repository.PlateRepository,
	readRepo *repository.ReadRepository,
	knownPlateRepo *repository.KnownPlateRepository,
	tagRepo *repository.TagRepository,
	settings Settings,
) *ReportService {
	return &ReportService{
		plateRepo:      plateRepo,
		readRepo:       readRepo,
		knownPlateRepo: knownPlateRepo,
		tagRepo:        tagRepo,
		settings:       settings,
	}
}

type Pagination struct {
	Total     int `json:"total"`
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
}

func paginate(total, page, pageSize int) Pagination {
	pageCount := (total + pageSize - 1) / pageSize
	return Pagination{Total: total, Page: page, PageSize: pageSize, PageCount: pageCount}
}

type MisreadView struct {
	PlateNumber     string     `json:"plate_number"`
	Name            *string    `json:"name"`
	Notes           *string    `json:"notes"`
	OccurrenceCount int64      `json:"occurrence_count"`
	FirstSeenAt     *time.Time `json:"first_seen_at"`
	LastSeenAt      *time.Time `json:"last_seen_at"`
	LastSeen        string     `json:"last_seen"`
}

type PlateRow struct {
	PlateNumber       string          `json:"plate_number"`
	Flagged           bool            `json:"flagged"`
	Name              *string         `json:"name"`
	Notes             *string         `json:"notes"`
	OccurrenceCount   int64           `json:"occurrence_count"`
	FirstSeenAt       time.Time       `json:"first_seen_at"`
	LastSeenAt        *time.Time      `json:"last_seen_at"`
	LastSeen          string          `json:"last_seen"`
	DaysSinceLastSeen int             `json:"days_since_last_seen"`
	Tags              []model.TagInfo `json:"tags"`
	Misreads          []MisreadView   `json:"misreads"`
}

type PlateListQuery struct {
	Page      int
	PageSize  int
	SortField string
	SortOrder string
	Search    string
	Tag       string
	DateFrom  *time.Time
	DateTo    *time.Time
}

type PlateListResult struct {
	Data       []PlateRow `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListPlates produces one row per canonical (non-misread) plate with
// aggregates rolled up across the plate and its misread aliases. Sorting by
// occurrence_count or last_seen_at uses the rolled-up values.
func (s *ReportService) ListPlates(ctx context.Context, query PlateListQuery) (*PlateListResult, error) {
	query = normalizePlateQuery(query)

	rows, err := s.buildPlateRows(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	rows = filterPlateRows(rows, query)
	sortPlateRows(rows, query.SortField, query.SortOrder)

	total := len(rows)
	start := (query.Page - 1) * query.PageSize
	if start > total {
		start = total
	}
	end := start + query.PageSize
	if end > total {
		end = total
	}

	return &PlateListResult{
		Data:       rows[start:end],
		Pagination: paginate(total, query.Page, query.PageSize),
	}, nil
}

func normalizePlateQuery(query PlateListQuery) PlateListQuery {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = defaultPageSize
	}
	switch query.SortField {
	case "plate_number", "occurrence_count", "first_seen_at", "last_seen_at":
	default:
		query.SortField = "first_seen_at"
	}
	if !strings.EqualFold(query.SortOrder, "ASC") {
		query.SortOrder = "DESC"
	} else {
		query.SortOrder = "ASC"
	}
	return query
}

// buildPlateRows is the merge step over the four named queries.
func (s *ReportService) buildPlateRows(ctx context.Context, now time.Time) ([]PlateRow, error) {
	plates, err := s.plateRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	known, err := s.knownPlateRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.readRepo.StatsByPlate(ctx)
	if err != nil {
		return nil, err
	}

	tagsByPlate, err := s.tagRepo.TagsByPlate(ctx)
	if err != nil {
		return nil, err
	}

	knownByPlate := make(map[string]model.KnownPlate, len(known))
	misreadsByParent := make(map[string][]model.KnownPlate)
	for _, kp := range known {
		knownByPlate[kp.PlateNumber] = kp
		if kp.IsMisread() {
			misreadsByParent[*kp.ParentPlateNumber] = append(misreadsByParent[*kp.ParentPlateNumber], kp)
		}
	}

	staleDays := s.settings.Retention().StaleDays

	rows := make([]PlateRow, 0, len(plates))
	for _, plate := range plates {
		if kp, ok := knownByPlate[plate.PlateNumber]; ok && kp.IsMisread() {
			// Misread strings roll into their parent's row.
			continue
		}
		rows = append(rows, s.buildPlateRow(plate, knownByPlate, misreadsByParent, stats, tagsByPlate, now, staleDays))
	}

	return rows, nil
}

func (s *ReportService) buildPlateRow(
	plate model.Plate,
	knownByPlate map[string]model.KnownPlate,
	misreadsByParent map[string][]model.KnownPlate,
	stats map[string]repository.ReadStats,
	tagsByPlate map[string][]model.TagInfo,
	now time.Time,
	staleDays int,
) PlateRow {
	row := PlateRow{
		PlateNumber: plate.PlateNumber,
		Flagged:     plate.Flagged,
		FirstSeenAt: plate.FirstSeenAt,
		Tags:        []model.TagInfo{},
		Misreads:    []MisreadView{},
	}
	if tags, ok := tagsByPlate[plate.PlateNumber]; ok {
		row.Tags = tags
	}

	if kp, ok := knownByPlate[plate.PlateNumber]; ok {
		row.Name = kp.Name
		row.Notes = kp.Notes
	}

	var firstSeen, lastSeen time.Time
	if own, ok := stats[plate.PlateNumber]; ok {
		row.OccurrenceCount = own.Count
		firstSeen = own.FirstSeen
		lastSeen = own.LastSeen
	}

	for _, misread := range misreadsByParent[plate.PlateNumber] {
		view := MisreadView{
			PlateNumber: misread.PlateNumber,
			Name:        misread.Name,
			Notes:       misread.Notes,
		}
		if st, ok := stats[misread.PlateNumber]; ok {
			view.OccurrenceCount = st.Count
			first, last := st.FirstSeen, st.LastSeen
			view.FirstSeenAt = &first
			view.LastSeenAt = &last
			view.LastSeen = timefmt.Relative(last, now)

			row.OccurrenceCount += st.Count
			if firstSeen.IsZero() || first.Before(firstSeen) {
				firstSeen = first
			}
			if last.After(lastSeen) {
				lastSeen = last
			}
		}
		row.Misreads = append(row.Misreads, view)
	}

	if !firstSeen.IsZero() {
		row.FirstSeenAt = firstSeen
	}
	if !lastSeen.IsZero() {
		last := lastSeen
		row.LastSeenAt = &last
		row.LastSeen = timefmt.Relative(last, now)
		row.DaysSinceLastSeen = int(now.Sub(last) / (24 * time.Hour))
	} else {
		// Known plates without any occurrence report the configured stale
		// default instead of a real age.
		row.DaysSinceLastSeen = staleDays
	}

	return row
}

func filterPlateRows(rows []PlateRow, query PlateListQuery) []PlateRow {
	filtered := rows[:0:0]
	for _, row := range rows {
		if query.Search != "" && !plateRowMatches(row, query.Search) {
			continue
		}
		if query.Tag != "" && !hasTag(row.Tags, query.Tag) {
			continue
		}
		if query.DateFrom != nil && row.FirstSeenAt.Before(*query.DateFrom) {
			continue
		}
		if query.DateTo != nil && !row.FirstSeenAt.Before(query.DateTo.AddDate(0, 0, 1)) {
			continue
		}
		filtered = append(filtered, row)
	}
	return filtered
}

// plateRowMatches implements the free-text filter: plate number, known name,
// notes, or any misread plate number, case-insensitive.
func plateRowMatches(row PlateRow, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(row.PlateNumber), needle) {
		return true
	}
	if row.Name != nil && strings.Contains(strings.ToLower(*row.Name), needle) {
		return true
	}
	if row.Notes != nil && strings.Contains(strings.ToLower(*row.Notes), needle) {
		return true
	}
	for _, m := range row.Misreads {
		if strings.Contains(strings.ToLower(m.PlateNumber), needle) {
			return true
		}
	}
	return false
}

func hasTag(tags []model.TagInfo, name string) bool {
	for _, t := range tags {
		if t.Name == name {
			return true
		}
	}
	return false
}

func sortPlateRows(rows []PlateRow, field, order string) {
	asc := order == "ASC"

	less := func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch field {
		case "plate_number":
			if a.PlateNumber != b.PlateNumber {
				return a.PlateNumber < b.PlateNumber
			}
		case "occurrence_count":
			if a.OccurrenceCount != b.OccurrenceCount {
				return a.OccurrenceCount < b.OccurrenceCount
			}
		case "last_seen_at":
			at, bt := zeroTime(a.LastSeenAt), zeroTime(b.LastSeenAt)
			if !at.Equal(bt) {
				return at.Before(bt)
			}
		default: // first_seen_at
			if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
				return a.FirstSeenAt.Before(b.FirstSeenAt)
			}
		}
		return a.PlateNumber < b.PlateNumber
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if asc {
			return less(i, j)
		}
		return less(j, i)
	})
}

func zeroTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

type ReadView struct {
	model.PlateRead
	Flagged    bool            `json:"flagged"`
	KnownPlate *string         `json:"known_plate"`
	KnownName  *string         `json:"known_name"`
	KnownNotes *string         `json:"known_notes"`
	Tags       []model.TagInfo `json:"tags"`
}

type ReadListQuery struct {
	Page        int
	PageSize    int
	PlateSearch string
	FuzzySearch bool
	CameraName  string
	Tag         string
	DateFrom    *time.Time
	DateTo      *time.Time
}

type ReadListResult struct {
	Data       []ReadView `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListReads is the paginated reads view with known-plate resolution per row.
// Fuzzy search resolves the matching plate set up front via edit distance
// instead of filtering in SQL.
func (s *ReportService) ListReads(ctx context.Context, query ReadListQuery) (*ReadListResult, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = defaultPageSize
	}

	filter := repository.ReadListFilter{
		CameraName: query.CameraName,
		TagName:    query.Tag,
		DateFrom:   query.DateFrom,
		DateTo:     query.DateTo,
	}

	if query.PlateSearch != "" && query.FuzzySearch {
		distinct, err := s.readRepo.DistinctPlateNumbers(ctx)
		if err != nil {
			return nil, err
		}
		matched := []string{}
		for _, plate := range distinct {
			if match.Fuzzy(plate, query.PlateSearch) {
				matched = append(matched, plate)
			}
		}
		filter.PlateNumbers = matched
	} else if query.PlateSearch != "" {
		filter.PlateSubstring = query.PlateSearch
	}

	total, err := s.readRepo.CountFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}

	reads, err := s.readRepo.ListFiltered(ctx, filter, query.PageSize, (query.Page-1)*query.PageSize)
	if err != nil {
		return nil, err
	}

	views, err := s.decorateReads(ctx, reads)
	if err != nil {
		return nil, err
	}

	return &ReadListResult{
		Data:       views,
		Pagination: paginate(int(total), query.Page, query.PageSize),
	}, nil
}

func (s *ReportService) decorateReads(ctx context.Context, reads []model.PlateRead) ([]ReadView, error) {
	known, err := s.knownPlateRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	knownByPlate := make(map[string]model.KnownPlate, len(known))
	for _, kp := range known {
		knownByPlate[kp.PlateNumber] = kp
	}

	views := make([]ReadView, 0, len(reads))
	for _, read := range reads {
		view := ReadView{PlateRead: read}

		if plate, err := s.plateRepo.GetByPlateNumber(ctx, read.PlateNumber); err == nil {
			view.Flagged = plate.Flagged
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		if kp, ok := knownByPlate[read.PlateNumber]; ok {
			if kp.IsMisread() {
				view.KnownPlate = kp.ParentPlateNumber
				if parent, ok := knownByPlate[*kp.ParentPlateNumber]; ok {
					view.KnownName = parent.Name
					view.KnownNotes = parent.Notes
				}
			} else {
				plateNumber := kp.PlateNumber
				view.KnownPlate = &plateNumber
				view.KnownName = kp.Name
				view.KnownNotes = kp.Notes
			}
		}

		tags, err := s.tagRepo.TagsForPlate(ctx, read.PlateNumber)
		if err != nil {
			return nil, err
		}
		view.Tags = tags

		views = append(views, view)
	}
	return views, nil
}

// PlateHistory returns every stored read for one plate string, newest first.
func (s *ReportService) PlateHistory(ctx context.Context, plateNumber string) ([]ReadView, error) {
	reads, err := s.readRepo.HistoryByPlate(ctx, extract.NormalizePlate(plateNumber))
	if err != nil {
		return nil, err
	}
	return s.decorateReads(ctx, reads)
}

type PlateInsights struct {
	PlateNumber      string            `json:"plate_number"`
	KnownName        *string           `json:"known_name"`
	Notes            *string           `json:"notes"`
	FirstSeenAt      *time.Time        `json:"first_seen_at"`
	LastSeenAt       *time.Time        `json:"last_seen_at"`
	TotalOccurrences int64             `json:"total_occurrences"`
	Tags             []model.TagInfo   `json:"tags"`
	RecentReads      []model.PlateRead `json:"recent_reads"`
}

// PlateInsights summarizes one plate. A misread string is resolved to its
// parent first so insights always describe the canonical identity.
func (s *ReportService) PlateInsights(ctx context.Context, plateNumber string) (*PlateInsights, error) {
	target, err := s.knownPlateRepo.ResolveCanonical(ctx, extract.NormalizePlate(plateNumber))
	if err != nil {
		return nil, err
	}

	insights := &PlateInsights{
		PlateNumber: target,
		Tags:        []model.TagInfo{},
		RecentReads: []model.PlateRead{},
	}

	if kp, err := s.knownPlateRepo.Get(ctx, target); err != nil {
		return nil, err
	} else if kp != nil {
		insights.KnownName = kp.Name
		insights.Notes = kp.Notes
	}

	stats, err := s.readRepo.StatsByPlate(ctx, target)
	if err != nil {
		return nil, err
	}
	if st, ok := stats[target]; ok {
		first, last := st.FirstSeen, st.LastSeen
		insights.FirstSeenAt = &first
		insights.LastSeenAt = &last
		insights.TotalOccurrences = st.Count
	}

	tags, err := s.tagRepo.TagsForPlate(ctx, target)
	if err != nil {
		return nil, err
	}
	insights.Tags = tags

	recent, err := s.readRepo.RecentByPlate(ctx, target, 10)
	if err != nil {
		return nil, err
	}
	insights.RecentReads = recent

	return insights, nil
}

type Metrics struct {
	UniquePlates24h int64                   `json:"unique_plates"`
	TotalReads24h   int64                   `json:"total_reads"`
	WeeklyUnique    int64                   `json:"weekly_unique"`
	TotalPlates     int64                   `json:"total_plates"`
	TopPlates       []repository.PlateCount `json:"top_plates"`
}

func (s *ReportService) Metrics(ctx context.Context, now time.Time) (*Metrics, error) {
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	metrics := &Metrics{}
	var err error

	if metrics.UniquePlates24h, err = s.readRepo.UniquePlatesSince(ctx, dayAgo, now); err != nil {
		return nil, err
	}
	if metrics.TotalReads24h, err = s.readRepo.CountSince(ctx, dayAgo, now); err != nil {
		return nil, err
	}
	if metrics.WeeklyUnique, err = s.readRepo.UniquePlatesSince(ctx, weekAgo, now); err != nil {
		return nil, err
	}
	if metrics.TotalPlates, err = s.plateRepo.Count(ctx); err != nil {
		return nil, err
	}
	if metrics.TopPlates, err = s.readRepo.TopPlatesSince(ctx, dayAgo, now, 5); err != nil {
		return nil, err
	}

	return metrics, nil
}

type KnownPlateView struct {
	model.KnownPlate
	Flagged bool            `json:"flagged"`
	Tags    []model.TagInfo `json:"tags"`
}

func (s *ReportService) KnownPlates(ctx context.Context) ([]KnownPlateView, error) {
	known, err := s.knownPlateRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]KnownPlateView, 0, len(known))
	for _, kp := range known {
		view := KnownPlateView{KnownPlate: kp}
		if plate, err := s.plateRepo.GetByPlateNumber(ctx, kp.PlateNumber); err == nil {
			view.Flagged = plate.Flagged
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		tags, err := s.tagRepo.TagsForPlate(ctx, kp.PlateNumber)
		if err != nil {
			return nil, err
		}
		view.Tags = tags
		views = append(views, view)
	}
	return views, nil
}

type FlaggedPlateView struct {
	PlateNumber string          `json:"plate_number"`
	Tags        []model.TagInfo `json:"tags"`
}

func (s *ReportService) FlaggedPlates(ctx context.Context) ([]FlaggedPlateView, error) {
	plates, err := s.plateRepo.ListFlagged(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]FlaggedPlateView, 0, len(plates))
	for _, plate := range plates {
		tags, err := s.tagRepo.TagsForPlate(ctx, plate.PlateNumber)
		if err != nil {
			return nil, err
		}
		views = append(views, FlaggedPlateView{PlateNumber: plate.PlateNumber, Tags: tags})
	}
	return views, nil
}

func (s *ReportService) CameraNames(ctx context.Context) ([]string, error) {
	return s.readRepo.DistinctCameraNames(ctx)
}
