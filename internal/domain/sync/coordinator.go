package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	stdsync "sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"learning-app-go/internal/domain/learning"
	"learning-app-go/pkg/logger"
)

const (
	defaultRemoteTimeout  = 10 * time.Second
	defaultFlushBatchSize = 50
	defaultFlushMaxTries  = 3
	defaultFlushInterval  = 30 * time.Second
)

// Coordinator owns the in-memory view of lessons and notes, keeps it
// consistent with the local store, and reconciles with the remote service when
// connectivity allows. Initialize and ResetAll are exclusive with every other
// operation; mutations on the same lesson are serialized.
type Coordinator struct {
	store  learning.Repository
	outbox Outbox
	remote Remote
	conn   Connectivity

	log     logger.Logger
	metrics *Metrics
	now     func() time.Time

	remoteTimeout  time.Duration
	flushBatchSize int
	flushMaxTries  uint
	flushInterval  time.Duration
	newBackOff     func() backoff.BackOff

	lifecycle   stdsync.RWMutex
	lessonLocks *keyedMutex
	flushMu     stdsync.Mutex
	view        *viewState
}

type Option func(*Coordinator)

func WithLogger(log logger.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

func WithRemoteTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.remoteTimeout = timeout
		}
	}
}

// WithFlushPolicy configures how the outbox is drained: entries per flush,
// delivery attempts per entry, and the background flush period used by Run.
func WithFlushPolicy(batchSize int, maxTries uint, interval time.Duration) Option {
	return func(c *Coordinator) {
		if batchSize > 0 {
			c.flushBatchSize = batchSize
		}
		if maxTries > 0 {
			c.flushMaxTries = maxTries
		}
		if interval > 0 {
			c.flushInterval = interval
		}
	}
}

func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Coordinator) {
		if newBackOff != nil {
			c.newBackOff = newBackOff
		}
	}
}

func NewCoordinator(store learning.Repository, outbox Outbox, remote Remote, conn Connectivity, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		outbox:         outbox,
		remote:         remote,
		conn:           conn,
		log:            logger.NewNop(),
		now:            time.Now,
		remoteTimeout:  defaultRemoteTimeout,
		flushBatchSize: defaultFlushBatchSize,
		flushMaxTries:  defaultFlushMaxTries,
		flushInterval:  defaultFlushInterval,
		newBackOff:     defaultBackOff,
		lessonLocks:    newKeyedMutex(),
		view:           newViewState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	return b
}

// Snapshot returns a copy of the current view.
func (c *Coordinator) Snapshot() View {
	return c.view.snapshot()
}

// Subscribe returns a channel that receives the current view immediately and a
// fresh snapshot after every change. Call the returned func to stop.
func (c *Coordinator) Subscribe() (<-chan View, func()) {
	return c.view.subscribe()
}

func (c *Coordinator) Initialize(ctx context.Context) Result {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	return c.initialize(ctx)
}

func (c *Coordinator) initialize(ctx context.Context) Result {
	startedAt := time.Now()
	c.view.update(func(v *View) {
		v.IsLoading = true
		v.Phase = PhaseLoading
	})

	result := c.loadAndSync(ctx)
	pending := c.pendingCount(ctx)

	phase := PhaseOnlineSynced
	switch result.Outcome {
	case OutcomeFailed:
		phase = PhaseErrorLocal
	case OutcomeLocal:
		phase = PhaseOfflineLocal
	}

	c.view.update(func(v *View) {
		v.IsLoading = false
		v.Phase = phase
		v.PendingCount = pending
		v.LastError = errorString(result.Err)
	})

	c.log.Debug("sync.initialize: completed",
		"phase", phase,
		"pending", pending,
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return result
}

func (c *Coordinator) loadAndSync(ctx context.Context) Result {
	local, err := c.store.ListLessons(ctx)
	if err != nil {
		c.log.InternalError("sync.initialize: load lessons from local store failed", err)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("list lessons", err)}
	}

	c.view.update(func(v *View) {
		v.Lessons = nonNilLessons(local)
	})
	if len(local) > 0 {
		c.log.Info("sync.initialize: lessons loaded from local store", "count", len(local))
	}

	if !c.online(ctx) {
		c.setOffline(true)
		c.log.Info("sync.initialize: offline, serving local data", "count", len(local))
		return Result{Outcome: OutcomeLocal}
	}
	c.setOffline(false)

	// Deliver owed mutations first so the fetched set already reflects them.
	c.drain(ctx, false)

	remote, err := c.fetchLessons(ctx)
	if err != nil {
		c.metrics.fetch("failed")
		c.setOffline(true)
		c.log.BusinessError("sync.initialize: could not sync with server, using local data", err)
		return Result{Outcome: OutcomeLocal, RemoteErr: err}
	}

	if len(remote) == 0 {
		c.metrics.fetch("empty")
		c.log.Info("sync.initialize: server returned no lessons, keeping local copy", "local", len(local))
		return Result{Outcome: OutcomeSynced}
	}

	merged := MergeLessons(local, remote, c.pendingProgress(ctx))

	err = c.store.Transaction(ctx, func(tx learning.Repository) error {
		if err := tx.ClearLessons(ctx); err != nil {
			return err
		}
		return tx.BulkAddLessons(ctx, merged.Lessons)
	})
	if err != nil {
		c.metrics.fetch("failed")
		c.log.InternalError("sync.initialize: replace local lessons failed", err)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("replace lessons", err)}
	}

	// Ids assigned by the store for id-less remote rows must show up in the view.
	stored, err := c.store.ListLessons(ctx)
	if err != nil {
		c.metrics.fetch("failed")
		c.log.InternalError("sync.initialize: reload lessons failed", err)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("reload lessons", err)}
	}

	c.view.update(func(v *View) {
		v.Lessons = nonNilLessons(stored)
		if v.CurrentLesson != nil {
			v.CurrentLesson = findLesson(stored, v.CurrentLesson.ID)
			if v.CurrentLesson == nil {
				v.Notes = []learning.Note{}
			}
		}
	})

	c.metrics.fetch("synced")
	c.log.Info("sync.initialize: lessons synced from server",
		"total", len(merged.Lessons),
		"added", len(merged.Added),
		"updated", len(merged.Updated),
		"dropped", len(merged.Dropped),
	)
	return Result{Outcome: OutcomeSynced}
}

// SelectLesson loads one lesson and its notes from the local store into the
// current selection. A missing id clears the current lesson.
func (c *Coordinator) SelectLesson(ctx context.Context, id int64) Result {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	var (
		lesson *learning.Lesson
		notes  []learning.Note
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := c.store.GetLesson(gctx, id)
		if err != nil {
			if errors.Is(err, learning.ErrLessonNotFound) {
				return nil
			}
			return fmt.Errorf("get lesson: %w", err)
		}
		lesson = found
		return nil
	})
	g.Go(func() error {
		found, err := c.store.ListNotesByLesson(gctx, id)
		if err != nil {
			return fmt.Errorf("list notes: %w", err)
		}
		notes = found
		return nil
	})

	if err := g.Wait(); err != nil {
		c.log.InternalError("sync.select: load lesson failed", err, "lesson_id", id)
		c.view.update(func(v *View) {
			v.CurrentLesson = nil
			v.Notes = []learning.Note{}
			v.LastError = err.Error()
		})
		return Result{Outcome: OutcomeFailed, Err: localStoreError("select lesson", err)}
	}

	c.view.update(func(v *View) {
		v.CurrentLesson = lesson
		v.Notes = nonNilNotes(notes)
	})

	if lesson == nil {
		c.log.BusinessError("sync.select: lesson not found", learning.ErrLessonNotFound, "lesson_id", id)
		return Result{Outcome: OutcomeNotFound, Err: learning.ErrLessonNotFound}
	}
	return Result{Outcome: OutcomeLocal}
}

// UpdateProgress commits progress locally, mirrors it into the view and then
// delivers it to the remote service best-effort. Undelivered progress is kept
// in the outbox, one entry per lesson.
func (c *Coordinator) UpdateProgress(ctx context.Context, id int64, progress float64) Result {
	if err := learning.Validate(learning.ProgressInput{LessonID: id, Progress: progress}); err != nil {
		c.log.BusinessError("sync.progress: invalid input", err, "lesson_id", id, "progress", progress)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()
	unlock := c.lessonLocks.Lock(id)
	defer unlock()

	if err := c.store.UpdateLesson(ctx, id, learning.LessonPatch{Progress: &progress}); err != nil {
		if errors.Is(err, learning.ErrLessonNotFound) {
			c.log.BusinessError("sync.progress: lesson not found", err, "lesson_id", id)
			return Result{Outcome: OutcomeNotFound, Err: localStoreError("update lesson", err)}
		}
		c.log.InternalError("sync.progress: update local store failed", err, "lesson_id", id)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("update lesson", err)}
	}

	// The view may not hold the lesson yet when Initialize has not run.
	var committed *learning.Lesson
	if findLesson(c.view.snapshot().Lessons, id) == nil {
		lesson, err := c.store.GetLesson(ctx, id)
		if err != nil {
			c.log.InternalError("sync.progress: reload committed lesson failed", err, "lesson_id", id)
		}
		committed = lesson
	}

	c.view.update(func(v *View) {
		for i := range v.Lessons {
			if v.Lessons[i].ID == id {
				v.Lessons[i].Progress = progress
			}
		}
		if committed != nil && findLesson(v.Lessons, id) == nil {
			v.Lessons = insertLesson(v.Lessons, *committed)
		}
		if v.CurrentLesson != nil && v.CurrentLesson.ID == id {
			v.CurrentLesson.Progress = progress
		}
	})

	result := c.pushProgress(ctx, id, progress)
	c.refreshPending(ctx)
	return result
}

func (c *Coordinator) pushProgress(ctx context.Context, id int64, progress float64) Result {
	operationID := uuid.NewString()

	if !c.online(ctx) {
		c.setOffline(true)
		if err := c.enqueueProgress(ctx, operationID, id, progress); err != nil {
			return Result{Outcome: OutcomeLocal, RemoteErr: err}
		}
		c.metrics.submit(OperationKindLessonProgress, "queued")
		c.log.Info("sync.progress: updated locally, will sync when online", "lesson_id", id)
		return Result{Outcome: OutcomeLocal}
	}

	rctx, cancel := c.remoteContext(ctx)
	err := c.remote.SubmitProgress(rctx, operationID, id, progress)
	cancel()

	switch {
	case err == nil:
		// A newer value reached the server; an older queued value must not follow it.
		if discardErr := c.outbox.Discard(ctx, OperationKindLessonProgress, entityKey(id)); discardErr != nil {
			c.log.InternalError("sync.progress: discard stale outbox entry failed", discardErr, "lesson_id", id)
		}
		c.metrics.submit(OperationKindLessonProgress, "synced")
		c.log.Info("sync.progress: synced to server", "lesson_id", id, "progress", progress)
		return Result{Outcome: OutcomeSynced}
	case errors.Is(err, ErrRemoteRejected):
		c.metrics.submit(OperationKindLessonProgress, "rejected")
		c.log.BusinessError("sync.progress: server rejected progress", err, "lesson_id", id)
		return Result{Outcome: OutcomeRejected, RemoteErr: err}
	default:
		c.metrics.submit(OperationKindLessonProgress, "failed")
		c.log.BusinessError("sync.progress: failed to sync progress to server", err, "lesson_id", id)
		if enqueueErr := c.enqueueProgress(ctx, operationID, id, progress); enqueueErr != nil {
			return Result{Outcome: OutcomeLocal, RemoteErr: errors.Join(err, enqueueErr)}
		}
		return Result{Outcome: OutcomePending, RemoteErr: err}
	}
}

func (c *Coordinator) enqueueProgress(ctx context.Context, operationID string, id int64, progress float64) error {
	op, err := newProgressOperation(operationID, id, progress)
	if err != nil {
		return err
	}
	if err := c.outbox.Enqueue(ctx, op); err != nil {
		c.log.InternalError("sync.progress: enqueue outbox entry failed", err, "lesson_id", id)
		return localStoreError("enqueue progress", err)
	}
	return nil
}

// AddNote stores a new note, appends it to the current selection when that
// selection is the note's lesson, and delivers it to the remote service
// best-effort. Timestamps never go backwards within a lesson.
func (c *Coordinator) AddNote(ctx context.Context, lessonID int64, text string) Result {
	text = strings.TrimSpace(text)
	if err := learning.Validate(learning.NoteInput{LessonID: lessonID, Text: text}); err != nil {
		c.log.BusinessError("sync.note: invalid input", err, "lesson_id", lessonID)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()
	unlock := c.lessonLocks.Lock(lessonID)
	defer unlock()

	existing, err := c.store.ListNotesByLesson(ctx, lessonID)
	if err != nil {
		c.log.InternalError("sync.note: read existing notes failed", err, "lesson_id", lessonID)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("list notes", err)}
	}

	timestamp := c.now().UTC()
	for _, note := range existing {
		if note.Timestamp.After(timestamp) {
			timestamp = note.Timestamp
		}
	}

	note := learning.Note{
		LessonID:  lessonID,
		Text:      text,
		Timestamp: timestamp,
	}
	id, err := c.store.AddNote(ctx, &note)
	if err != nil {
		c.log.InternalError("sync.note: add to local store failed", err, "lesson_id", lessonID)
		return Result{Outcome: OutcomeFailed, Err: localStoreError("add note", err)}
	}
	note.ID = id

	c.view.update(func(v *View) {
		if v.CurrentLesson != nil && v.CurrentLesson.ID == lessonID {
			v.Notes = append(v.Notes, note)
		}
	})

	result := c.pushNote(ctx, note)
	c.refreshPending(ctx)
	return result
}

func (c *Coordinator) pushNote(ctx context.Context, note learning.Note) Result {
	operationID := uuid.NewString()

	if !c.online(ctx) {
		c.setOffline(true)
		if err := c.enqueueNote(ctx, operationID, note); err != nil {
			return Result{Outcome: OutcomeLocal, RemoteErr: err}
		}
		c.metrics.submit(OperationKindNoteCreate, "queued")
		c.log.Info("sync.note: saved locally, will sync when online", "note_id", note.ID)
		return Result{Outcome: OutcomeLocal}
	}

	rctx, cancel := c.remoteContext(ctx)
	saved, err := c.remote.SubmitNote(rctx, operationID, note)
	cancel()

	switch {
	case err == nil:
		c.metrics.submit(OperationKindNoteCreate, "synced")
		attrs := []any{"note_id", note.ID, "lesson_id", note.LessonID}
		if saved != nil {
			attrs = append(attrs, "server_id", saved.ID)
		}
		c.log.Info("sync.note: synced to server", attrs...)
		return Result{Outcome: OutcomeSynced}
	case errors.Is(err, ErrRemoteRejected):
		c.metrics.submit(OperationKindNoteCreate, "rejected")
		c.log.BusinessError("sync.note: server rejected note", err, "note_id", note.ID)
		return Result{Outcome: OutcomeRejected, RemoteErr: err}
	default:
		c.metrics.submit(OperationKindNoteCreate, "failed")
		c.log.BusinessError("sync.note: failed to sync note to server", err, "note_id", note.ID)
		if enqueueErr := c.enqueueNote(ctx, operationID, note); enqueueErr != nil {
			return Result{Outcome: OutcomeLocal, RemoteErr: errors.Join(err, enqueueErr)}
		}
		return Result{Outcome: OutcomePending, RemoteErr: err}
	}
}

func (c *Coordinator) enqueueNote(ctx context.Context, operationID string, note learning.Note) error {
	op, err := newNoteOperation(operationID, note)
	if err != nil {
		return err
	}
	if err := c.outbox.Enqueue(ctx, op); err != nil {
		c.log.InternalError("sync.note: enqueue outbox entry failed", err, "note_id", note.ID)
		return localStoreError("enqueue note", err)
	}
	return nil
}

// ResetAll destroys every local row, including the outbox, clears the view and
// initializes again. Intended for tests and debugging.
func (c *Coordinator) ResetAll(ctx context.Context) Result {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	err := c.store.Transaction(ctx, func(tx learning.Repository) error {
		if err := tx.ClearLessons(ctx); err != nil {
			return err
		}
		if err := tx.ClearQuizzes(ctx); err != nil {
			return err
		}
		return tx.ClearNotes(ctx)
	})
	if err != nil {
		c.log.InternalError("sync.reset: clear local tables failed", err)
		c.view.update(func(v *View) {
			v.LastError = err.Error()
		})
		return Result{Outcome: OutcomeFailed, Err: localStoreError("clear tables", err)}
	}

	if err := c.outbox.Clear(ctx); err != nil {
		c.log.InternalError("sync.reset: clear outbox failed", err)
	}

	c.view.update(func(v *View) {
		v.Lessons = []learning.Lesson{}
		v.CurrentLesson = nil
		v.Notes = []learning.Note{}
		v.PendingCount = 0
		v.LastError = ""
	})
	c.metrics.setPending(0)
	c.log.Info("sync.reset: all local data cleared")

	return c.initialize(ctx)
}

func (c *Coordinator) online(ctx context.Context) bool {
	if c.conn == nil {
		return false
	}
	return c.conn.Online(ctx)
}

func (c *Coordinator) setOffline(offline bool) {
	c.view.update(func(v *View) {
		v.IsOffline = offline
	})
}

func (c *Coordinator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.remoteTimeout)
}

func (c *Coordinator) fetchLessons(ctx context.Context) ([]learning.Lesson, error) {
	rctx, cancel := c.remoteContext(ctx)
	defer cancel()
	return c.remote.FetchLessons(rctx)
}

func (c *Coordinator) pendingProgress(ctx context.Context) map[int64]float64 {
	ops, err := c.outbox.ListByKind(ctx, OperationKindLessonProgress)
	if err != nil {
		c.log.InternalError("sync.initialize: read pending progress failed", err)
		return nil
	}

	pending := make(map[int64]float64, len(ops))
	for _, op := range ops {
		payload, err := decodeProgress(op)
		if err != nil {
			c.log.InternalError("sync.initialize: decode pending progress failed", err, "operation_id", op.ID)
			continue
		}
		pending[payload.LessonID] = payload.Progress
	}
	return pending
}

func (c *Coordinator) pendingCount(ctx context.Context) int64 {
	count, err := c.outbox.Count(ctx)
	if err != nil {
		c.log.InternalError("sync: count outbox failed", err)
		return c.view.snapshot().PendingCount
	}
	c.metrics.setPending(count)
	return count
}

func (c *Coordinator) refreshPending(ctx context.Context) {
	count := c.pendingCount(ctx)
	c.view.update(func(v *View) {
		v.PendingCount = count
	})
}

func findLesson(lessons []learning.Lesson, id int64) *learning.Lesson {
	for i := range lessons {
		if lessons[i].ID == id {
			lesson := lessons[i]
			return &lesson
		}
	}
	return nil
}

// insertLesson keeps lessons ordered by id, the order the store lists them in.
func insertLesson(lessons []learning.Lesson, lesson learning.Lesson) []learning.Lesson {
	i := 0
	for i < len(lessons) && lessons[i].ID < lesson.ID {
		i++
	}
	lessons = append(lessons, learning.Lesson{})
	copy(lessons[i+1:], lessons[i:])
	lessons[i] = lesson
	return lessons
}

func nonNilLessons(lessons []learning.Lesson) []learning.Lesson {
	if lessons == nil {
		return []learning.Lesson{}
	}
	return learning.CloneLessons(lessons)
}

func nonNilNotes(notes []learning.Note) []learning.Note {
	if notes == nil {
		return []learning.Note{}
	}
	return learning.CloneNotes(notes)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
