package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/imcbs/vsaver-backend/internal/records"
)

const migrationPurgeEmptyTenantRows = "2026-03-10_purge_empty_tenant_rows"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationPurgeEmptyTenantRows, apply: purgeEmptyTenantRows},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// purgeEmptyTenantRows removes rows written while an earlier schema revision
// let client_id be blank. Such rows have no owning tenant and can never be
// addressed by a reconciliation or read, so they are dropped outright.
func purgeEmptyTenantRows(db *gorm.DB) error {
	targets := []any{&records.LedgerMaster{}, &records.FirmInfo{}, &records.Invoice{}}
	for _, target := range targets {
		if err := db.Where("client_id IS NULL OR client_id = ''").Delete(target).Error; err != nil {
			return err
		}
	}
	return nil
}
