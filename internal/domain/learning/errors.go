package learning

import "errors"

var (
	ErrLessonNotFound = errors.New("lesson not found")
	ErrInvalidInput   = errors.New("invalid input")
)
