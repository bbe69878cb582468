package sync

import (
	"context"

	"learning-app-go/internal/domain/learning"
)

// Outbox persists mutations whose remote delivery is owed.
type Outbox interface {
	Enqueue(ctx context.Context, op *PendingOperation) error
	ListPending(ctx context.Context, limit int) ([]PendingOperation, error)
	ListByKind(ctx context.Context, kind OperationKind) ([]PendingOperation, error)
	MarkAttempt(ctx context.Context, id string, lastError string) error
	Delete(ctx context.Context, id string) error
	Discard(ctx context.Context, kind OperationKind, entityKey string) error
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}

// Remote is the backend the coordinator reconciles with. Implementations must
// wrap transport failures in ErrRemoteUnavailable and negative
// acknowledgements in ErrRemoteRejected.
type Remote interface {
	FetchLessons(ctx context.Context) ([]learning.Lesson, error)
	SubmitProgress(ctx context.Context, operationID string, lessonID int64, progress float64) error
	SubmitNote(ctx context.Context, operationID string, note learning.Note) (*learning.Note, error)
}

// Connectivity reports whether the remote service is believed reachable.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// ConnectivityNotifier is implemented by connectivity sources that can push
// transitions instead of being polled.
type ConnectivityNotifier interface {
	Changes() <-chan bool
}
