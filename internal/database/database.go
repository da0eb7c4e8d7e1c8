package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/imcbs/vsaver-backend/internal/records"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config selects and parameterizes the storage backend. SQLite serves local
// deployments and tests; MySQL is the production engine.
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Open establishes the database connection, migrates the schema, and applies
// pending repair migrations.
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(
		&records.LedgerMaster{},
		&records.FirmInfo{},
		&records.Invoice{},
		&records.SyncRun{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("driver", cfg.Driver))
	}

	return db, nil
}

func openDialector(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("database path is required for sqlite")
		}
		return gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{})
	case DriverMySQL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database dsn is required for mysql")
		}
		return gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
