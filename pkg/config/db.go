package config

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Archive backends understood by NewDB
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// NewDB opens the SQL archive store selected by Storage.ArchiveBackend.
// The file backend needs no database and returns an error here.
func NewDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Storage.ArchiveBackend {
	case BackendSQLite:
		dsn := cfg.Storage.ArchiveDSN
		if dsn == "" {
			dsn = cfg.Storage.DataDir + "/archive.db"
		}
		dialector = sqlite.Open(dsn)
	case BackendPostgres:
		if cfg.Storage.ArchiveDSN == "" {
			return nil, fmt.Errorf("ARCHIVE_DSN is required for the postgres archive backend")
		}
		dialector = postgres.Open(cfg.Storage.ArchiveDSN)
	default:
		return nil, fmt.Errorf("archive backend %q has no database", cfg.Storage.ArchiveBackend)
	}

	gormConfig := &gorm.Config{}

	// Set logging level based on application environment
	if cfg.Server.Env == "development" {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Error)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s archive store: %w", cfg.Storage.ArchiveBackend, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	if cfg.Storage.ArchiveBackend == BackendSQLite {
		// sqlite serialises writers anyway; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	return db, nil
}

// TestConnection checks if the database connection is working
func TestConnection(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
