package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Flush delivers queued mutations in FIFO order. Transient failures are
// retried with backoff; the first entry that still fails stops the flush and
// keeps its place in the queue. Rejected entries are dropped.
func (c *Coordinator) Flush(ctx context.Context) FlushReport {
	c.lifecycle.RLock()
	defer c.lifecycle.RUnlock()

	if !c.online(ctx) {
		c.setOffline(true)
		remaining := c.pendingCount(ctx)
		c.view.update(func(v *View) {
			v.PendingCount = remaining
		})
		return FlushReport{Result: Result{Outcome: OutcomeLocal}, Remaining: remaining}
	}
	c.setOffline(false)

	report := c.drain(ctx, true)
	c.view.update(func(v *View) {
		v.PendingCount = report.Remaining
	})
	return report
}

// drain assumes the caller holds the lifecycle lock in either mode.
func (c *Coordinator) drain(ctx context.Context, retry bool) FlushReport {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	startedAt := time.Now()
	report := FlushReport{Result: Result{Outcome: OutcomeSynced}}

	ops, err := c.outbox.ListPending(ctx, c.flushBatchSize)
	if err != nil {
		c.log.InternalError("sync.flush: list outbox failed", err)
		report.Result = Result{Outcome: OutcomeFailed, Err: localStoreError("list outbox", err)}
		report.Remaining = c.pendingCount(ctx)
		return report
	}

	for _, op := range ops {
		err := c.deliver(ctx, op, retry)
		switch {
		case err == nil:
			report.Synced++
			c.metrics.flush("synced")
			if err := c.outbox.Delete(ctx, op.ID); err != nil {
				c.log.InternalError("sync.flush: delete delivered entry failed", err, "operation_id", op.ID)
			}
			continue
		case errors.Is(err, ErrRemoteRejected), errors.Is(err, ErrUnknownOperation):
			report.Rejected++
			c.metrics.flush("rejected")
			c.log.BusinessError("sync.flush: entry rejected, dropping", err,
				"operation_id", op.ID,
				"kind", op.Kind,
				"entity_key", op.EntityKey,
			)
			if err := c.outbox.Delete(ctx, op.ID); err != nil {
				c.log.InternalError("sync.flush: delete rejected entry failed", err, "operation_id", op.ID)
			}
			continue
		}

		c.metrics.flush("failed")
		c.log.BusinessError("sync.flush: delivery failed, keeping entry", err,
			"operation_id", op.ID,
			"kind", op.Kind,
			"attempts", op.Attempts+1,
		)
		if markErr := c.outbox.MarkAttempt(ctx, op.ID, err.Error()); markErr != nil {
			c.log.InternalError("sync.flush: record attempt failed", markErr, "operation_id", op.ID)
		}
		report.Outcome = OutcomePending
		report.RemoteErr = err
		break
	}

	report.Remaining = c.pendingCount(ctx)
	if len(ops) > 0 {
		c.log.Info("sync.flush: completed",
			"synced", report.Synced,
			"rejected", report.Rejected,
			"remaining", report.Remaining,
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	}
	return report
}

// deliver sends one outbox entry while holding the lock of the lesson it
// touches, so it cannot overtake or be overtaken by a live mutation.
func (c *Coordinator) deliver(ctx context.Context, op PendingOperation, retry bool) error {
	lessonID, err := op.lessonID()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnknownOperation, op.Kind, err)
	}
	unlock := c.lessonLocks.Lock(lessonID)
	defer unlock()

	attempt := func() (struct{}, error) {
		err := c.submitPending(ctx, op)
		if errors.Is(err, ErrRemoteRejected) || errors.Is(err, ErrUnknownOperation) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	if !retry {
		_, err := attempt()
		return unwrapPermanent(err)
	}

	_, err = backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.flushMaxTries),
	)
	return unwrapPermanent(err)
}

func (c *Coordinator) submitPending(ctx context.Context, op PendingOperation) error {
	rctx, cancel := c.remoteContext(ctx)
	defer cancel()

	switch op.Kind {
	case OperationKindLessonProgress:
		payload, err := decodeProgress(op)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownOperation, err)
		}
		return c.remote.SubmitProgress(rctx, op.ID, payload.LessonID, payload.Progress)
	case OperationKindNoteCreate:
		var payload NotePayload
		if err := json.Unmarshal(op.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownOperation, err)
		}
		_, err := c.remote.SubmitNote(rctx, op.ID, payload.Note)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op.Kind)
	}
}

// Run flushes the outbox whenever connectivity comes back and on every flush
// interval until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("sync.run: starting", "flush_interval", c.flushInterval)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	var changes <-chan bool
	if notifier, ok := c.conn.(ConnectivityNotifier); ok {
		changes = notifier.Changes()
	}

	for {
		select {
		case <-ctx.Done():
			c.log.Info("sync.run: stopping")
			return nil
		case online, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			c.setOffline(!online)
			c.log.Info("sync.run: connectivity changed", "online", online)
			if online {
				c.Flush(ctx)
			}
		case <-ticker.C:
			c.Flush(ctx)
		}
	}
}

func decodeProgress(op PendingOperation) (ProgressPayload, error) {
	var payload ProgressPayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return ProgressPayload{}, err
	}
	return payload, nil
}

func unwrapPermanent(err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}
