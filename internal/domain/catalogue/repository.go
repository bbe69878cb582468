package catalogue

import (
	"context"

	"learning-app-go/internal/domain/learning"
)

// Repository holds the service-side lesson catalogue and received notes.
type Repository interface {
	ListLessons(ctx context.Context) ([]learning.Lesson, error)
	// SetProgress reports whether the lesson exists.
	SetProgress(ctx context.Context, lessonID int64, progress float64) (bool, error)
	// CreateNote assigns an id. A repeated idempotency key returns the note
	// stored the first time and replayed=true.
	CreateNote(ctx context.Context, idempotencyKey string, note learning.Note) (saved learning.Note, replayed bool, err error)
	ListNotes(ctx context.Context) ([]learning.Note, error)
}
