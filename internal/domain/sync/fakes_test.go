package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"

	"learning-app-go/internal/domain/learning"
)

type fakeStore struct {
	mu      stdsync.Mutex
	lessons []learning.Lesson
	notes   []learning.Note
	quizzes []learning.Quiz
	nextID  int64

	listErr    error
	listCalls  int
	listOKFor  int // calls that succeed before listErr applies
	updateErr  error
	addNoteErr error
	bulkErr    error
}

func newFakeStore(lessons ...learning.Lesson) *fakeStore {
	s := &fakeStore{}
	for _, lesson := range lessons {
		s.lessons = append(s.lessons, lesson)
		if lesson.ID > s.nextID {
			s.nextID = lesson.ID
		}
	}
	return s
}

func (s *fakeStore) Transaction(ctx context.Context, fn func(learning.Repository) error) error {
	s.mu.Lock()
	lessons := learning.CloneLessons(s.lessons)
	notes := learning.CloneNotes(s.notes)
	quizzes := append([]learning.Quiz(nil), s.quizzes...)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.lessons, s.notes, s.quizzes = lessons, notes, quizzes
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *fakeStore) ListLessons(ctx context.Context) ([]learning.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil && s.listCalls > s.listOKFor {
		return nil, s.listErr
	}
	return learning.CloneLessons(s.lessons), nil
}

func (s *fakeStore) GetLesson(ctx context.Context, id int64) (*learning.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lesson := range s.lessons {
		if lesson.ID == id {
			found := lesson
			return &found, nil
		}
	}
	return nil, learning.ErrLessonNotFound
}

func (s *fakeStore) AddLesson(ctx context.Context, lesson *learning.Lesson) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	lesson.ID = s.nextID
	s.lessons = append(s.lessons, *lesson)
	return lesson.ID, nil
}

func (s *fakeStore) UpdateLesson(ctx context.Context, id int64, patch learning.LessonPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.lessons {
		if s.lessons[i].ID != id {
			continue
		}
		if patch.Title != nil {
			s.lessons[i].Title = *patch.Title
		}
		if patch.Content != nil {
			s.lessons[i].Content = *patch.Content
		}
		if patch.Progress != nil {
			s.lessons[i].Progress = *patch.Progress
		}
		return nil
	}
	return learning.ErrLessonNotFound
}

func (s *fakeStore) BulkAddLessons(ctx context.Context, lessons []learning.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkErr != nil {
		return s.bulkErr
	}
	for _, lesson := range lessons {
		if lesson.ID == 0 {
			s.nextID++
			lesson.ID = s.nextID
		} else if lesson.ID > s.nextID {
			s.nextID = lesson.ID
		}
		s.lessons = append(s.lessons, lesson)
	}
	return nil
}

func (s *fakeStore) ClearLessons(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = nil
	return nil
}

func (s *fakeStore) ListNotes(ctx context.Context) ([]learning.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return learning.CloneNotes(s.notes), nil
}

func (s *fakeStore) ListNotesByLesson(ctx context.Context, lessonID int64) ([]learning.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var notes []learning.Note
	for _, note := range s.notes {
		if note.LessonID == lessonID {
			notes = append(notes, note)
		}
	}
	return notes, nil
}

func (s *fakeStore) AddNote(ctx context.Context, note *learning.Note) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addNoteErr != nil {
		return 0, s.addNoteErr
	}
	note.ID = int64(len(s.notes) + 1)
	s.notes = append(s.notes, *note)
	return note.ID, nil
}

func (s *fakeStore) ClearNotes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = nil
	return nil
}

func (s *fakeStore) ListQuizzes(ctx context.Context) ([]learning.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]learning.Quiz(nil), s.quizzes...), nil
}

func (s *fakeStore) AddQuiz(ctx context.Context, quiz *learning.Quiz) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz.ID = int64(len(s.quizzes) + 1)
	s.quizzes = append(s.quizzes, *quiz)
	return quiz.ID, nil
}

func (s *fakeStore) ClearQuizzes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = nil
	return nil
}

func (s *fakeStore) lessonsSnapshot() []learning.Lesson {
	s.mu.Lock()
	defer s.mu.Unlock()
	return learning.CloneLessons(s.lessons)
}

func (s *fakeStore) notesSnapshot() []learning.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return learning.CloneNotes(s.notes)
}

type fakeOutbox struct {
	mu         stdsync.Mutex
	ops        []PendingOperation
	enqueueErr error
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{}
}

func (o *fakeOutbox) Enqueue(ctx context.Context, op *PendingOperation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enqueueErr != nil {
		return o.enqueueErr
	}
	for i := range o.ops {
		if o.ops[i].Kind == op.Kind && o.ops[i].EntityKey == op.EntityKey {
			o.ops[i].ID = op.ID
			o.ops[i].Payload = op.Payload
			o.ops[i].Attempts = 0
			o.ops[i].LastError = nil
			return nil
		}
	}
	o.ops = append(o.ops, *op)
	return nil
}

func (o *fakeOutbox) ListPending(ctx context.Context, limit int) ([]PendingOperation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ops := append([]PendingOperation(nil), o.ops...)
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

func (o *fakeOutbox) ListByKind(ctx context.Context, kind OperationKind) ([]PendingOperation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var ops []PendingOperation
	for _, op := range o.ops {
		if op.Kind == kind {
			ops = append(ops, op)
		}
	}
	return ops, nil
}

func (o *fakeOutbox) MarkAttempt(ctx context.Context, id string, lastError string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ops {
		if o.ops[i].ID == id {
			o.ops[i].Attempts++
			message := lastError
			o.ops[i].LastError = &message
		}
	}
	return nil
}

func (o *fakeOutbox) Delete(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.ops {
		if o.ops[i].ID == id {
			o.ops = append(o.ops[:i], o.ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (o *fakeOutbox) Discard(ctx context.Context, kind OperationKind, entityKey string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.ops[:0]
	for _, op := range o.ops {
		if op.Kind == kind && op.EntityKey == entityKey {
			continue
		}
		kept = append(kept, op)
	}
	o.ops = kept
	return nil
}

func (o *fakeOutbox) Count(ctx context.Context) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return int64(len(o.ops)), nil
}

func (o *fakeOutbox) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = nil
	return nil
}

func (o *fakeOutbox) snapshot() []PendingOperation {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]PendingOperation(nil), o.ops...)
}

type progressCall struct {
	OperationID string
	LessonID    int64
	Progress    float64
}

type fakeRemote struct {
	mu      stdsync.Mutex
	lessons []learning.Lesson

	fetchErr    error
	progressErr error
	noteErr     error

	// Hooks run before the canned answer; a non-nil return replaces it.
	onFetch    func(ctx context.Context) error
	onProgress func(ctx context.Context, lessonID int64, progress float64) error

	fetches       int
	progressCalls []progressCall
	noteCalls     []learning.Note
}

func newFakeRemote(lessons ...learning.Lesson) *fakeRemote {
	return &fakeRemote{lessons: lessons}
}

func (r *fakeRemote) FetchLessons(ctx context.Context) ([]learning.Lesson, error) {
	r.mu.Lock()
	r.fetches++
	hook := r.onFetch
	r.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fetchErr != nil {
		return nil, r.fetchErr
	}
	return learning.CloneLessons(r.lessons), nil
}

func (r *fakeRemote) SubmitProgress(ctx context.Context, operationID string, lessonID int64, progress float64) error {
	r.mu.Lock()
	hook := r.onProgress
	r.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, lessonID, progress); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progressErr != nil {
		return r.progressErr
	}
	r.progressCalls = append(r.progressCalls, progressCall{OperationID: operationID, LessonID: lessonID, Progress: progress})
	return nil
}

func (r *fakeRemote) SubmitNote(ctx context.Context, operationID string, note learning.Note) (*learning.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.noteErr != nil {
		return nil, r.noteErr
	}
	r.noteCalls = append(r.noteCalls, note)
	saved := note
	saved.ID = int64(100 + len(r.noteCalls))
	return &saved, nil
}

func (r *fakeRemote) setProgressErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progressErr = err
}

func (r *fakeRemote) setNoteErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noteErr = err
}

func (r *fakeRemote) progressSnapshot() []progressCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]progressCall(nil), r.progressCalls...)
}

func (r *fakeRemote) notesSnapshot() []learning.Note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]learning.Note(nil), r.noteCalls...)
}

func (r *fakeRemote) fetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetches
}

type fakeConn struct {
	online  atomic.Bool
	changes chan bool
}

func newFakeConn(online bool) *fakeConn {
	c := &fakeConn{changes: make(chan bool, 4)}
	c.online.Store(online)
	return c
}

func (c *fakeConn) Online(context.Context) bool {
	return c.online.Load()
}

func (c *fakeConn) Changes() <-chan bool {
	return c.changes
}

func (c *fakeConn) set(online bool) {
	c.online.Store(online)
}

var errNetwork = errors.Join(ErrRemoteUnavailable, errors.New("connection refused"))
