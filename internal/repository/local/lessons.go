package local

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"learning-app-go/internal/domain/learning"
)

const bulkInsertBatchSize = 200

func (r *GormRepository) ListLessons(ctx context.Context) ([]learning.Lesson, error) {
	var lessons []learning.Lesson
	if err := r.db.WithContext(ctx).Order("id asc").Find(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *GormRepository) GetLesson(ctx context.Context, id int64) (*learning.Lesson, error) {
	var lesson learning.Lesson
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, learning.ErrLessonNotFound
		}
		return nil, err
	}
	return &lesson, nil
}

func (r *GormRepository) AddLesson(ctx context.Context, lesson *learning.Lesson) (int64, error) {
	if err := r.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return 0, err
	}
	return lesson.ID, nil
}

func (r *GormRepository) UpdateLesson(ctx context.Context, id int64, patch learning.LessonPatch) error {
	if patch.IsEmpty() {
		return r.lessonExists(ctx, id)
	}

	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Progress != nil {
		updates["progress"] = *patch.Progress
	}
	result := r.db.WithContext(ctx).
		Model(&learning.Lesson{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.lessonExists(ctx, id)
	}
	return nil
}

// BulkAddLessons keeps supplied ids and lets the store assign the rest.
// Rows with ids go first so assigned ids land above them.
func (r *GormRepository) BulkAddLessons(ctx context.Context, lessons []learning.Lesson) error {
	if len(lessons) == 0 {
		return nil
	}

	var withID, withoutID []learning.Lesson
	for _, lesson := range lessons {
		if lesson.ID != 0 {
			withID = append(withID, lesson)
		} else {
			withoutID = append(withoutID, lesson)
		}
	}

	db := r.db.WithContext(ctx)
	if len(withID) > 0 {
		if err := db.CreateInBatches(withID, bulkInsertBatchSize).Error; err != nil {
			return err
		}
		if r.isPostgres() {
			if err := r.resyncLessonSequence(ctx); err != nil {
				return err
			}
		}
	}
	if len(withoutID) > 0 {
		if err := db.CreateInBatches(withoutID, bulkInsertBatchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *GormRepository) ClearLessons(ctx context.Context) error {
	return r.clearTable(ctx, &learning.Lesson{})
}

func (r *GormRepository) lessonExists(ctx context.Context, id int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&learning.Lesson{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return learning.ErrLessonNotFound
	}
	return nil
}

// Explicit ids do not advance a postgres serial sequence.
func (r *GormRepository) resyncLessonSequence(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Exec("SELECT setval(pg_get_serial_sequence('lessons', 'id'), COALESCE((SELECT MAX(id) FROM lessons), 0) + 1, false)").
		Error
}
