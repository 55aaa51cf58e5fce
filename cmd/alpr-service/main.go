package main

import (
	"fmt"
	"os"

	"alpr-service/internal/auth"
	"alpr-service/internal/broadcast"
	"alpr-service/internal/config"
	"alpr-service/internal/db"
	httphandler "alpr-service/internal/http"
	"alpr-service/internal/http/middleware"
	"alpr-service/internal/logger"
	"alpr-service/internal/notify"
	"alpr-service/internal/repository"
	"alpr-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	plateRepo := repository.NewPlateRepository(database)
	readRepo := repository.NewReadRepository(database)
	knownPlateRepo := repository.NewKnownPlateRepository(database)
	tagRepo := repository.NewTagRepository(database)
	notificationRepo := repository.NewNotificationRepository(database)

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Pushover.Enabled {
		pushover, err := notify.NewPushoverNotifier(cfg.Pushover)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to configure pushover")
		}
		notifier = pushover
		appLogger.Info().Msg("pushover notifications enabled")
	}

	var broadcaster broadcast.Broadcaster = broadcast.Noop{}
	if cfg.MQTT.Broker != "" {
		mqttBroadcaster, err := broadcast.NewMQTTBroadcaster(cfg.MQTT)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect mqtt broker")
		}
		defer mqttBroadcaster.Close()
		broadcaster = mqttBroadcaster
		appLogger.Info().Str("broker", cfg.MQTT.Broker).Str("topic", cfg.MQTT.Topic).Msg("mqtt broadcasting enabled")
	}

	settings := config.Settings{}

	notificationService := service.NewNotificationService(notificationRepo, tagRepo, notifier, appLogger)
	ingestService := service.NewIngestService(database, plateRepo, readRepo, knownPlateRepo, tagRepo,
		notificationService, broadcaster, settings, appLogger)
	correctionService := service.NewCorrectionService(database, plateRepo, readRepo, knownPlateRepo, tagRepo, appLogger)
	reportService := service.NewReportService(plateRepo, readRepo, knownPlateRepo, tagRepo, settings)
	tagService := service.NewTagService(tagRepo, plateRepo, appLogger)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(ingestService, correctionService, notificationService,
		reportService, tagService, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	apiKeyMiddleware := middleware.APIKey(cfg.Auth.APIKey)
	router := httphandler.NewRouter(handler, authMiddleware, apiKeyMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting alpr service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
