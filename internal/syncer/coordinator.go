// Package syncer implements the deferred-work layer that reconciles locally
// queued audit mutations once connectivity returns, and delivers
// server-pushed notifications to the user.
package syncer

import (
	"context"
	"sync"

	"github.com/tama-audit/auditor/internal/logging"
)

// TaskFunc performs one unit of deferred work, e.g. flushing pending audit
// mutations.
type TaskFunc func(ctx context.Context) error

type task struct {
	fn       TaskFunc
	pending  bool
	inFlight bool
	failures int
}

// Coordinator tracks deferred-work tags. Collaborators Schedule a tag while
// offline; the connectivity signal consumes it. A task that errors stays
// pending and is retried on the next qualifying signal — retry by
// recurrence, no backoff (the probe interval paces re-attempts).
type Coordinator struct {
	log logging.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

func NewCoordinator(log logging.Logger) *Coordinator {
	return &Coordinator{
		log:   log.With("component", "syncer"),
		tasks: make(map[string]*task),
	}
}

// Register declares interest in a tag. Signals for unregistered tags are
// ignored. Re-registering a tag replaces its function but keeps its
// pending/failure bookkeeping.
func (c *Coordinator) Register(tag string, fn TaskFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[tag]; ok {
		t.fn = fn
		return
	}
	c.tasks[tag] = &task{fn: fn}
}

// Schedule marks the tag pending. Called by collaborators when a mutation is
// queued while offline. Unknown tags are ignored; scheduling an already
// pending tag is a no-op (one task per tag, not a queue of instances).
func (c *Coordinator) Schedule(tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[tag]; ok {
		t.pending = true
	}
}

// Pending reports whether the tag has work waiting for connectivity.
func (c *Coordinator) Pending(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[tag]
	return ok && t.pending
}

// Failures returns how many consecutive runs of the tag have failed since
// it last succeeded.
func (c *Coordinator) Failures(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tasks[tag]; ok {
		return t.failures
	}
	return 0
}

// ConnectivityRegained handles a host connectivity signal carrying a task
// tag. The task runs only when the tag is registered, pending, and not
// already in flight; at most one execution per tag is ever in flight. On
// success the pending mark clears; on error it is left in place for the
// next signal. The returned error is informational — callers fire and
// forget.
func (c *Coordinator) ConnectivityRegained(ctx context.Context, tag string) error {
	c.mu.Lock()
	t, ok := c.tasks[tag]
	if !ok || !t.pending || t.inFlight {
		c.mu.Unlock()
		return nil
	}
	t.inFlight = true
	fn := t.fn
	c.mu.Unlock()

	c.log.Info(ctx, "running deferred task", "tag", tag)
	err := fn(ctx)

	c.mu.Lock()
	t.inFlight = false
	if err != nil {
		t.failures++
		c.log.Warn(ctx, "deferred task failed, left pending",
			"tag", tag, "failures", t.failures, "error", err)
	} else {
		t.pending = false
		t.failures = 0
		c.log.Info(ctx, "deferred task completed", "tag", tag)
	}
	c.mu.Unlock()
	return err
}

// Tags returns the registered tags.
func (c *Coordinator) Tags() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.tasks))
	for tag := range c.tasks {
		out = append(out, tag)
	}
	return out
}
