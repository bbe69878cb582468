package learning

import "context"

// Repository is the Local Store contract. Each call is atomic on its own;
// Transaction groups several calls into one unit.
type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	ListLessons(ctx context.Context) ([]Lesson, error)
	GetLesson(ctx context.Context, id int64) (*Lesson, error)
	AddLesson(ctx context.Context, lesson *Lesson) (int64, error)
	UpdateLesson(ctx context.Context, id int64, patch LessonPatch) error
	BulkAddLessons(ctx context.Context, lessons []Lesson) error
	ClearLessons(ctx context.Context) error

	ListNotes(ctx context.Context) ([]Note, error)
	ListNotesByLesson(ctx context.Context, lessonID int64) ([]Note, error)
	AddNote(ctx context.Context, note *Note) (int64, error)
	ClearNotes(ctx context.Context) error

	ListQuizzes(ctx context.Context) ([]Quiz, error)
	AddQuiz(ctx context.Context, quiz *Quiz) (int64, error)
	ClearQuizzes(ctx context.Context) error
}
