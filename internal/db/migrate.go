package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"learning-app-go/internal/domain/learning"
	syncdomain "learning-app-go/internal/domain/sync"
	"learning-app-go/pkg/logger"
)

type migration struct {
	name  string
	apply func(tx *gorm.DB) error
}

// migrations are applied in order and recorded by name; append only.
var migrations = []migration{
	{
		name: "0001_learning_schema",
		apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&learning.Lesson{}, &learning.Quiz{}, &learning.Note{})
		},
	},
	{
		name: "0002_pending_sync",
		apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&syncdomain.PendingOperation{})
		},
	},
}

type schemaMigration struct {
	Filename  string    `gorm:"primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

func Migrate(db *gorm.DB, log logger.Logger) error {
	if err := ensureSchemaMigrations(db); err != nil {
		return err
	}

	for _, m := range migrations {
		applied, err := isMigrationApplied(db, m.name)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return fmt.Errorf("apply migration %s: %w", m.name, err)
			}
			return recordMigration(tx, m.name)
		})
		if err != nil {
			return err
		}
		log.Info("db: migration applied", "name", m.name)
	}

	return nil
}

func ensureSchemaMigrations(db *gorm.DB) error {
	return db.AutoMigrate(&schemaMigration{})
}

func isMigrationApplied(db *gorm.DB, name string) (bool, error) {
	var count int64
	if err := db.Model(&schemaMigration{}).Where("filename = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func recordMigration(db *gorm.DB, name string) error {
	return db.Create(&schemaMigration{Filename: name, AppliedAt: time.Now().UTC()}).Error
}
