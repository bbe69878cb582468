package local

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	syncdomain "learning-app-go/internal/domain/sync"
)

// Enqueue inserts an outbox entry. An entry already queued for the same
// (kind, entity_key) is replaced in place and keeps its queue position.
func (r *GormRepository) Enqueue(ctx context.Context, op *syncdomain.PendingOperation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "kind"},
				{Name: "entity_key"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"id", "payload", "attempts", "last_error", "updated_at"}),
		}).
		Create(op).Error
}

func (r *GormRepository) ListPending(ctx context.Context, limit int) ([]syncdomain.PendingOperation, error) {
	query := r.db.WithContext(ctx).Order("created_at asc, id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ops []syncdomain.PendingOperation
	if err := query.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *GormRepository) ListByKind(ctx context.Context, kind syncdomain.OperationKind) ([]syncdomain.PendingOperation, error) {
	var ops []syncdomain.PendingOperation
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at asc, id asc").
		Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

func (r *GormRepository) MarkAttempt(ctx context.Context, id string, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&syncdomain.PendingOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *GormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&syncdomain.PendingOperation{}).Error
}

func (r *GormRepository) Discard(ctx context.Context, kind syncdomain.OperationKind, entityKey string) error {
	return r.db.WithContext(ctx).
		Where("kind = ? AND entity_key = ?", kind, entityKey).
		Delete(&syncdomain.PendingOperation{}).Error
}

func (r *GormRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&syncdomain.PendingOperation{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRepository) Clear(ctx context.Context) error {
	return r.clearTable(ctx, &syncdomain.PendingOperation{})
}
