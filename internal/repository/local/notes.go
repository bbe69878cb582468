package local

import (
	"context"

	"learning-app-go/internal/domain/learning"
)

func (r *GormRepository) ListNotes(ctx context.Context) ([]learning.Note, error) {
	var notes []learning.Note
	if err := r.db.WithContext(ctx).Order("id asc").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *GormRepository) ListNotesByLesson(ctx context.Context, lessonID int64) ([]learning.Note, error) {
	var notes []learning.Note
	if err := r.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("id asc").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *GormRepository) AddNote(ctx context.Context, note *learning.Note) (int64, error) {
	if err := r.db.WithContext(ctx).Create(note).Error; err != nil {
		return 0, err
	}
	return note.ID, nil
}

func (r *GormRepository) ClearNotes(ctx context.Context) error {
	return r.clearTable(ctx, &learning.Note{})
}

func (r *GormRepository) ListQuizzes(ctx context.Context) ([]learning.Quiz, error) {
	var quizzes []learning.Quiz
	if err := r.db.WithContext(ctx).Order("id asc").Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (r *GormRepository) AddQuiz(ctx context.Context, quiz *learning.Quiz) (int64, error) {
	if err := r.db.WithContext(ctx).Create(quiz).Error; err != nil {
		return 0, err
	}
	return quiz.ID, nil
}

func (r *GormRepository) ClearQuizzes(ctx context.Context) error {
	return r.clearTable(ctx, &learning.Quiz{})
}
