package db

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"learning-app-go/internal/config"
	"learning-app-go/pkg/logger"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
)

// NewPostgres opens a shared local store, used when several devices of one
// deployment keep their offline copy in the same database.
func NewPostgres(cfg config.DBConfig, log logger.Logger) (*gorm.DB, error) {
	if cfg.DSN != "" {
		log.Info("db: connecting using DSN")
	} else {
		log.Info("db: connecting to postgres", "host", cfg.Host, "port", cfg.Port, "dbname", cfg.Name, "sslmode", cfg.SSLMode)
	}

	return connect(postgres.Open(cfg.GetDSN()), "postgres", pool{
		maxOpen:     orDefault(cfg.MaxOpenConns, defaultMaxOpenConns),
		maxIdle:     orDefault(cfg.MaxIdleConns, defaultMaxIdleConns),
		maxLifetime: orDefault(cfg.ConnMaxLifetime, defaultConnMaxLifetime),
	}, log)
}

func orDefault[T int | time.Duration](value, fallback T) T {
	if value <= 0 {
		return fallback
	}
	return value
}
