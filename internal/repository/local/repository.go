package local

import (
	"context"

	"gorm.io/gorm"
	"learning-app-go/internal/domain/learning"
)

// GormRepository is the Local Store. It also holds the sync outbox so the
// coordinator's pending deliveries live next to the rows they describe.
type GormRepository struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(learning.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}

func (r *GormRepository) isPostgres() bool {
	return r.db.Dialector.Name() == "postgres"
}

func (r *GormRepository) clearTable(ctx context.Context, model any) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(model).Error
}
