package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"learning-app-go/internal/config"
	"learning-app-go/pkg/logger"
)

// NewSQLite opens the on-device store. A single connection keeps writers from
// tripping over SQLite's database-level lock.
func NewSQLite(cfg config.LocalStoreConfig, log logger.Logger) (*gorm.DB, error) {
	log.Info("db: opening sqlite", "path", cfg.Path)
	return connect(sqlite.Open(cfg.GetDSN()), "sqlite", pool{maxOpen: 1}, log)
}

type pool struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
}

func connect(dialector gorm.Dialector, driver string, p pool, log logger.Logger) (*gorm.DB, error) {
	gormDB, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	if p.maxIdle > 0 {
		sqlDB.SetMaxIdleConns(p.maxIdle)
	}
	if p.maxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(p.maxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	log.Info("db: connected", "driver", driver)
	return gormDB, nil
}

// Open connects to the configured local store backend and migrates it.
func Open(cfg config.Config, log logger.Logger) (*gorm.DB, error) {
	var (
		gormDB *gorm.DB
		err    error
	)
	switch cfg.LocalStore.Driver {
	case config.LocalStorePostgres:
		gormDB, err = NewPostgres(cfg.DB, log)
	case config.LocalStoreSQLite, "":
		gormDB, err = NewSQLite(cfg.LocalStore, log)
	default:
		return nil, fmt.Errorf("unsupported local store driver %q", cfg.LocalStore.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(gormDB, log); err != nil {
		_ = Close(gormDB)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return gormDB, nil
}

func Close(gormDB *gorm.DB) error {
	if gormDB == nil {
		return nil
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
}
