package inmemory

import (
	"context"
	"sync"

	"learning-app-go/internal/domain/learning"
)

// InMemoryCatalogue backs the stub lesson service. State lives for the
// lifetime of the process.
type InMemoryCatalogue struct {
	mu      sync.RWMutex
	lessons []learning.Lesson
	notes   []learning.Note
	byKey   map[string]learning.Note
}

func NewInMemoryCatalogue(lessons []learning.Lesson) *InMemoryCatalogue {
	return &InMemoryCatalogue{
		lessons: learning.CloneLessons(lessons),
		byKey:   make(map[string]learning.Note),
	}
}

// SeedLessons is the catalogue the stub service starts with.
func SeedLessons() []learning.Lesson {
	return []learning.Lesson{
		{ID: 1, Title: "Introduction to Vue 3", Content: "Learn the basics of Vue.js 3 components and reactivity.", Progress: 0},
		{ID: 2, Title: "Pinia State Management", Content: "Deep dive into Pinia stores, state, getters, and actions.", Progress: 0},
		{ID: 3, Title: "Offline-First with IndexedDB", Content: "Understand how to build applications that work offline.", Progress: 0},
	}
}

func (c *InMemoryCatalogue) ListLessons(ctx context.Context) ([]learning.Lesson, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return learning.CloneLessons(c.lessons), nil
}

func (c *InMemoryCatalogue) SetProgress(ctx context.Context, lessonID int64, progress float64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lessons {
		if c.lessons[i].ID == lessonID {
			c.lessons[i].Progress = progress
			return true, nil
		}
	}
	return false, nil
}

func (c *InMemoryCatalogue) CreateNote(ctx context.Context, idempotencyKey string, note learning.Note) (learning.Note, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idempotencyKey != "" {
		if saved, ok := c.byKey[idempotencyKey]; ok {
			return saved, true, nil
		}
	}

	note.ID = int64(len(c.notes) + 1)
	c.notes = append(c.notes, note)
	if idempotencyKey != "" {
		c.byKey[idempotencyKey] = note
	}
	return note, false, nil
}

func (c *InMemoryCatalogue) ListNotes(ctx context.Context) ([]learning.Note, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return learning.CloneNotes(c.notes), nil
}
