package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/networth/internal/models"
)

// SchemaMigration records an applied migration.
type SchemaMigration struct {
	Version    int       `gorm:"primaryKey;autoIncrement:false"`
	Name       string    `gorm:"type:varchar(255);not null"`
	ExecutedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for the SchemaMigration model
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Migration is one versioned schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// Migrations lists every schema step in version order.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.Account{},
				&models.Trade{},
				&models.BalanceSnapshot{},
				&models.NetWorthPoint{},
			)
		},
	},
	{
		Version: 2,
		Name:    "price_history",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.AssetPrice{})
		},
	},
	{
		Version: 3,
		Name:    "ledger_versions",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.LedgerVersion{})
		},
	},
}

// Migrate applies every pending migration, each in its own transaction.
func (db *DB) Migrate(logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := db.Model(&SchemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&current).Error; err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}

	applied := 0
	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		logger.Info("running migration", zap.Int("version", m.Version), zap.String("name", m.Name))
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, ExecutedAt: time.Now().UTC()}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
		applied++
	}
	return applied, nil
}
