package sync

import (
	"errors"
	"fmt"
)

var (
	ErrLocalStore        = errors.New("local store failure")
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	ErrRemoteRejected    = errors.New("remote service rejected request")
	ErrUnknownOperation  = errors.New("unknown pending operation kind")
)

func localStoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrLocalStore, op, err)
}
