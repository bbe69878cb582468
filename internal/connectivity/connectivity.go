package connectivity

import (
	"context"
	"sync/atomic"
)

// Static is a connectivity source whose state is set by the caller. It backs
// the fixed online/offline modes and lets tests flip the network mid-flight.
type Static struct {
	online  atomic.Bool
	changes *notifier
}

func NewStatic(online bool) *Static {
	s := &Static{changes: newNotifier()}
	s.online.Store(online)
	return s
}

func (s *Static) Online(context.Context) bool {
	return s.online.Load()
}

// Set updates the state and emits a change when it differs from the previous one.
func (s *Static) Set(online bool) {
	if s.online.Swap(online) != online {
		s.changes.publish(online)
	}
}

func (s *Static) Changes() <-chan bool {
	return s.changes.ch
}

// notifier keeps only the latest transition when the reader lags.
type notifier struct {
	ch chan bool
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan bool, 1)}
}

func (n *notifier) publish(online bool) {
	for {
		select {
		case n.ch <- online:
			return
		default:
		}
		select {
		case <-n.ch:
		default:
		}
	}
}
