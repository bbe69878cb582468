package sync

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"learning-app-go/internal/domain/learning"
)

type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseLoading      Phase = "loading"
	PhaseOnlineSynced Phase = "online-synced"
	PhaseOfflineLocal Phase = "offline-local"
	PhaseErrorLocal   Phase = "error-local"
)

type Outcome string

const (
	// OutcomeSynced: local state committed and the remote service acknowledged it.
	OutcomeSynced Outcome = "synced"
	// OutcomeLocal: served or committed locally while offline. Mutations are
	// queued in the outbox unless RemoteErr reports that queueing failed.
	OutcomeLocal Outcome = "local"
	// OutcomePending: local state committed, remote delivery failed and was
	// queued in the outbox.
	OutcomePending  Outcome = "pending"
	OutcomeRejected Outcome = "rejected"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Result is returned by every Coordinator operation. Err is set when the local
// store part failed; RemoteErr is set when the local part succeeded but the
// remote round-trip or the outbox write did not.
type Result struct {
	Outcome   Outcome
	Err       error
	RemoteErr error
}

func (r Result) OK() bool {
	return r.Err == nil
}

type FlushReport struct {
	Result
	Synced    int
	Rejected  int
	Remaining int64
}

type OperationKind string

const (
	OperationKindLessonProgress OperationKind = "lesson_progress"
	OperationKindNoteCreate     OperationKind = "note_create"
)

// PendingOperation is an outbox entry: a mutation committed locally whose
// remote delivery is still owed. (Kind, EntityKey) is unique, so a newer
// progress value for the same lesson replaces the queued one.
type PendingOperation struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Kind      OperationKind  `gorm:"not null;size:32;uniqueIndex:idx_pending_sync_entity"`
	EntityKey string         `gorm:"not null;size:64;uniqueIndex:idx_pending_sync_entity;column:entity_key"`
	Payload   datatypes.JSON `gorm:"not null"`
	Attempts  int            `gorm:"not null"`
	LastError *string        `gorm:"column:last_error"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (PendingOperation) TableName() string {
	return "pending_sync"
}

type ProgressPayload struct {
	LessonID int64   `json:"lessonId"`
	Progress float64 `json:"progress"`
}

type NotePayload struct {
	Note learning.Note `json:"note"`
}

func newProgressOperation(id string, lessonID int64, progress float64) (*PendingOperation, error) {
	payload, err := json.Marshal(ProgressPayload{LessonID: lessonID, Progress: progress})
	if err != nil {
		return nil, err
	}
	return &PendingOperation{
		ID:        id,
		Kind:      OperationKindLessonProgress,
		EntityKey: entityKey(lessonID),
		Payload:   datatypes.JSON(payload),
	}, nil
}

func newNoteOperation(id string, note learning.Note) (*PendingOperation, error) {
	payload, err := json.Marshal(NotePayload{Note: note})
	if err != nil {
		return nil, err
	}
	return &PendingOperation{
		ID:        id,
		Kind:      OperationKindNoteCreate,
		EntityKey: entityKey(note.ID),
		Payload:   datatypes.JSON(payload),
	}, nil
}

func entityKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// lessonID reports the lesson an outbox entry touches, used to take the same
// per-lesson lock as the live mutation paths.
func (op PendingOperation) lessonID() (int64, error) {
	switch op.Kind {
	case OperationKindLessonProgress:
		var payload ProgressPayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return 0, err
		}
		return payload.LessonID, nil
	case OperationKindNoteCreate:
		var payload NotePayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return 0, err
		}
		return payload.Note.LessonID, nil
	default:
		return 0, ErrUnknownOperation
	}
}
