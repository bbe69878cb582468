package sync

import (
	stdsync "sync"

	"learning-app-go/internal/domain/learning"
)

// View is the observer-facing projection of the coordinator's data. Values
// handed out by Snapshot and Subscribe are copies.
type View struct {
	Lessons       []learning.Lesson `json:"lessons"`
	CurrentLesson *learning.Lesson  `json:"currentLesson"`
	Notes         []learning.Note   `json:"notesForCurrentLesson"`
	IsLoading     bool              `json:"isLoading"`
	IsOffline     bool              `json:"isOffline"`
	Phase         Phase             `json:"phase"`
	PendingCount  int64             `json:"pendingCount"`
	LastError     string            `json:"lastError,omitempty"`
}

func (v View) clone() View {
	cloned := v
	cloned.Lessons = learning.CloneLessons(v.Lessons)
	cloned.Notes = learning.CloneNotes(v.Notes)
	if v.CurrentLesson != nil {
		current := *v.CurrentLesson
		cloned.CurrentLesson = &current
	}
	return cloned
}

type viewState struct {
	mu      stdsync.RWMutex
	view    View
	subs    map[int]chan View
	nextSub int
}

func newViewState() *viewState {
	return &viewState{
		view: View{Phase: PhaseIdle, Lessons: []learning.Lesson{}, Notes: []learning.Note{}},
		subs: make(map[int]chan View),
	}
}

func (s *viewState) snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.clone()
}

// update applies fn under the write lock and publishes the result. Slow
// subscribers only ever see the latest snapshot.
func (s *viewState) update(fn func(v *View)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.view)

	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.view.clone():
		default:
		}
	}
}

func (s *viewState) subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan View, 1)
	ch <- s.view.clone()
	s.subs[id] = ch

	var once stdsync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}
