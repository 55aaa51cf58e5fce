package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS plates (
		plate_number VARCHAR(32) PRIMARY KEY,
		flagged BOOLEAN NOT NULL DEFAULT FALSE,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS plate_reads (
		id BIGSERIAL PRIMARY KEY,
		plate_number VARCHAR(32) NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		image_data TEXT,
		camera_name VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		-- Older installs may lack camera_name
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns
			WHERE table_name = 'plate_reads' AND column_name = 'camera_name') THEN
			ALTER TABLE plate_reads ADD COLUMN camera_name VARCHAR(100);
		END IF;
	END
	$$;`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_plate_reads_plate_ts ON plate_reads (plate_number, timestamp);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_reads_plate_number ON plate_reads (plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_plate_reads_timestamp ON plate_reads (timestamp);`,
	`CREATE TABLE IF NOT EXISTS known_plates (
		plate_number VARCHAR(32) PRIMARY KEY,
		name VARCHAR(100),
		notes TEXT,
		parent_plate_number VARCHAR(32),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns
			WHERE table_name = 'known_plates' AND column_name = 'parent_plate_number') THEN
			ALTER TABLE known_plates ADD COLUMN parent_plate_number VARCHAR(32);
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_known_plates_parent ON known_plates (parent_plate_number);`,
	`CREATE TABLE IF NOT EXISTS tags (
		id SERIAL PRIMARY KEY,
		name VARCHAR(50) NOT NULL UNIQUE,
		color VARCHAR(7) NOT NULL DEFAULT '#808080'
	);`,
	`CREATE TABLE IF NOT EXISTS plate_tags (
		id BIGSERIAL PRIMARY KEY,
		plate_number VARCHAR(32) NOT NULL,
		tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_plate_tags_pair ON plate_tags (plate_number, tag_id);`,
	`CREATE TABLE IF NOT EXISTS plate_notifications (
		id SERIAL PRIMARY KEY,
		plate_number VARCHAR(32) NOT NULL UNIQUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE OR REPLACE FUNCTION set_updated_at()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_plates_updated_at') THEN
			CREATE TRIGGER trg_plates_updated_at
				BEFORE UPDATE ON plates
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = 'trg_plate_notifications_updated_at') THEN
			CREATE TRIGGER trg_plate_notifications_updated_at
				BEFORE UPDATE ON plate_notifications
				FOR EACH ROW
				EXECUTE PROCEDURE set_updated_at();
		END IF;
	END
	$$;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
