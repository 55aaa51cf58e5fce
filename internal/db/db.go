package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alpr-service/internal/config"
)

const connectAttempts = 3

// New opens the connection pool and runs migrations. The initial connect is
// retried a bounded number of times with backoff; exhausting retries is a
// hard failure for startup, not a crash loop.
func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	var database *gorm.DB
	var err error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		database, err = open(cfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("database connection failed")
		if attempt < connectAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", connectAttempts, err)
	}

	if err := runMigrations(database); err != nil {
		return nil, err
	}

	return database, nil
}

// Reconfigure closes the current pool and opens a new one from cfg. Callers
// own the swap; there is no implicit config-hash tracking.
func Reconfigure(current *gorm.DB, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	if current != nil {
		if sqlDB, err := current.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn().Err(err).Msg("closing previous pool")
			}
		}
	}
	return New(cfg, log)
}

func open(cfg *config.Config) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}

	if cfg.DB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}

	return database, nil
}
