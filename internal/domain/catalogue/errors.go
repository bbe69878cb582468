package catalogue

import "errors"

var (
	ErrInvalidProgress = errors.New("invalid progress")
	ErrInvalidNote     = errors.New("invalid note")
)
