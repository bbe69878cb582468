package catalogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"learning-app-go/internal/domain/learning"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) ListLessons(ctx context.Context) ([]learning.Lesson, error) {
	lessons, err := s.repo.ListLessons(ctx)
	if err != nil {
		return nil, err
	}
	if lessons == nil {
		return []learning.Lesson{}, nil
	}
	return lessons, nil
}

// UpdateProgress records progress for a lesson. Unknown lessons are accepted
// and ignored, matching the mock backend the client was written against.
func (s *Service) UpdateProgress(ctx context.Context, lessonID int64, progress float64) (bool, error) {
	if err := learning.Validate(learning.ProgressInput{LessonID: lessonID, Progress: progress}); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidProgress, err)
	}
	return s.repo.SetProgress(ctx, lessonID, progress)
}

func (s *Service) CreateNote(ctx context.Context, idempotencyKey string, note learning.Note) (learning.Note, bool, error) {
	note.Text = strings.TrimSpace(note.Text)
	if err := learning.Validate(learning.NoteInput{LessonID: note.LessonID, Text: note.Text}); err != nil {
		return learning.Note{}, false, fmt.Errorf("%w: %w", ErrInvalidNote, err)
	}
	if note.Timestamp.IsZero() {
		note.Timestamp = s.now().UTC()
	}
	note.ID = 0
	return s.repo.CreateNote(ctx, strings.TrimSpace(idempotencyKey), note)
}

func (s *Service) ListNotes(ctx context.Context) ([]learning.Note, error) {
	notes, err := s.repo.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		return []learning.Note{}, nil
	}
	return notes, nil
}
