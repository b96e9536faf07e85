package migrations

import (
	"fmt"
	"time"

	"github.com/pushp314/hackarena-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migration is one versioned schema change.
type Migration struct {
	ID        string // e.g. "001_create_contest_schema"
	Name      string
	Up        func(db *gorm.DB) error
	DependsOn []string
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: All(),
	}
}

func (m *Migrator) applied() (map[string]bool, error) {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var records []MigrationRecord
	if err := m.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch applied migrations: %w", err)
	}
	done := make(map[string]bool, len(records))
	for _, r := range records {
		done[r.ID] = true
	}
	return done, nil
}

// Pending lists the IDs of migrations that have not run yet, in order.
func (m *Migrator) Pending() ([]string, error) {
	done, err := m.applied()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, mig := range m.migrations {
		if !done[mig.ID] {
			ids = append(ids, mig.ID)
		}
	}
	return ids, nil
}

// Run executes all pending migrations, each in its own transaction.
func (m *Migrator) Run() error {
	done, err := m.applied()
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if done[mig.ID] {
			continue
		}
		for _, dep := range mig.DependsOn {
			if !done[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", mig.ID, dep)
			}
		}

		logger.Info().Str("migration", mig.ID).Str("name", mig.Name).Msg("Running migration")
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: mig.ID, Name: mig.Name}).Error
		})
		if err != nil {
			logger.Error().Err(err).Str("migration", mig.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", mig.ID, err)
		}
		done[mig.ID] = true
		logger.Info().Str("migration", mig.ID).Msg("Migration completed")
	}

	return nil
}

// All returns every registered migration in order.
func All() []Migration {
	return []Migration{
		Migration001CreateContestSchema(),
		Migration002AddContestIndexes(),
	}
}
