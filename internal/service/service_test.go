package service

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alpr-service/internal/broadcast"
	"alpr-service/internal/config"
	"alpr-service/internal/model"
	"alpr-service/internal/repository"
)

type fixedSettings struct {
	retention config.RetentionConfig
}

func (s fixedSettings) Retention() config.RetentionConfig {
	return s.retention
}

type notifierCall struct {
	Plate    string
	Priority int
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (n *recordingNotifier) Notify(plateNumber string, priority int, _ *string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{Plate: plateNumber, Priority: priority})
	return n.err
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcast.NewReadEvent
}

func (b *recordingBroadcaster) NewRead(event broadcast.NewReadEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

type testEnv struct {
	db               *gorm.DB
	plateRepo        *repository.PlateRepository
	readRepo         *repository.ReadRepository
	knownPlateRepo   *repository.KnownPlateRepository
	tagRepo          *repository.TagRepository
	notificationRepo *repository.NotificationRepository

	notifier    *recordingNotifier
	broadcaster *recordingBroadcaster

	ingest        *IngestService
	corrections   *CorrectionService
	notifications *NotificationService
	reports       *ReportService
	tags          *TagService
}

func newTestEnv(t *testing.T, maxRecords int) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "alpr_test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection keeps concurrent test goroutines queued instead of
	// tripping sqlite busy errors.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Plate{},
		&model.PlateRead{},
		&model.KnownPlate{},
		&model.Tag{},
		&model.PlateTag{},
		&model.PlateNotification{},
	))

	env := &testEnv{
		db:               db,
		plateRepo:        repository.NewPlateRepository(db),
		readRepo:         repository.NewReadRepository(db),
		knownPlateRepo:   repository.NewKnownPlateRepository(db),
		tagRepo:          repository.NewTagRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		notifier:         &recordingNotifier{},
		broadcaster:      &recordingBroadcaster{},
	}

	log := zerolog.Nop()
	settings := fixedSettings{retention: config.RetentionConfig{MaxRecords: maxRecords, StaleDays: 15}}

	env.notifications = NewNotificationService(env.notificationRepo, env.tagRepo, env.notifier, log)
	env.ingest = NewIngestService(db, env.plateRepo, env.readRepo, env.knownPlateRepo, env.tagRepo,
		env.notifications, env.broadcaster, settings, log)
	env.corrections = NewCorrectionService(db, env.plateRepo, env.readRepo, env.knownPlateRepo, env.tagRepo, log)
	env.reports = NewReportService(env.plateRepo, env.readRepo, env.knownPlateRepo, env.tagRepo, settings)
	env.tags = NewTagService(env.tagRepo, env.plateRepo, log)

	return env
}

// seedRead writes a plate row and one read directly, bypassing the pipeline.
func (e *testEnv) seedRead(t *testing.T, plate string, ts time.Time) {
	t.Helper()
	require.NoError(t, e.db.Exec(
		"INSERT OR IGNORE INTO plates (plate_number, flagged, first_seen_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		plate, false, ts, ts, ts).Error)
	require.NoError(t, e.db.Create(&model.PlateRead{PlateNumber: plate, Timestamp: ts}).Error)
}
