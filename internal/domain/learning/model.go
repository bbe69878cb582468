package learning

import (
	"time"

	"gorm.io/datatypes"
)

// Lesson is a unit of study. Progress is a percentage in [0, 100].
type Lesson struct {
	ID       int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Title    string  `gorm:"index" json:"title"`
	Content  string  `gorm:"index" json:"content"`
	Progress float64 `gorm:"index" json:"progress"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// Note is a free-text annotation on a lesson. LessonID is not enforced as a
// foreign key.
type Note struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonID  int64     `gorm:"index;not null;column:lesson_id" json:"lessonId"`
	Text      string    `gorm:"index" json:"text"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
}

func (Note) TableName() string {
	return "notes"
}

type Quiz struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	LessonID      int64          `gorm:"index;column:lesson_id" json:"lessonId"`
	Question      string         `gorm:"index" json:"question"`
	Options       datatypes.JSON `gorm:"column:options" json:"options"`
	CorrectAnswer string         `gorm:"index;column:correct_answer" json:"correctAnswer"`
	UserScore     *float64       `gorm:"index;column:user_score" json:"userScore,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// LessonPatch carries the fields of a partial lesson update. Nil fields are
// left untouched.
type LessonPatch struct {
	Title    *string
	Content  *string
	Progress *float64
}

func (p LessonPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Progress == nil
}

type ProgressInput struct {
	LessonID int64   `validate:"gt=0"`
	Progress float64 `validate:"gte=0,lte=100"`
}

type NoteInput struct {
	LessonID int64  `validate:"gt=0"`
	Text     string `validate:"required,max=10000"`
}

func CloneLessons(lessons []Lesson) []Lesson {
	if lessons == nil {
		return nil
	}
	cloned := make([]Lesson, len(lessons))
	copy(cloned, lessons)
	return cloned
}

func CloneNotes(notes []Note) []Note {
	if notes == nil {
		return nil
	}
	cloned := make([]Note, len(notes))
	copy(cloned, notes)
	return cloned
}
