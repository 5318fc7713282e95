// Package lock implements the process-wide fair FIFO metadata lock the
// trigger coordinator serializes execution-creation calls with. It's a
// single-slot buffered channel used as a ticket queue rather than a bare
// sync.Mutex: Go delivers buffered-channel sends to waiting receivers in
// the order they called receive, which gives FIFO ordering for free —
// a plain mutex makes no such guarantee.
package lock

import (
	"context"
	"sync/atomic"
	"time"
)

// FairLock is a single-holder mutual-exclusion primitive with FIFO
// acquisition order and a bounded wait. Acquire blocks until either the
// lock is granted or timeout elapses, and exposes QueueDepth for
// operator observability.
type FairLock struct {
	ticket chan struct{}
	queue  atomic.Int64
}

// New returns an unlocked FairLock.
func New() *FairLock {
	l := &FairLock{ticket: make(chan struct{}, 1)}
	l.ticket <- struct{}{}
	return l
}

// Acquire blocks until the lock is held by the caller or timeout elapses.
// Returns a release function and true on success; on timeout returns
// (nil, false) and the caller should translate that into its own
// lock-timeout error.
//
// FIFO ordering: every blocked caller is parked on the same channel
// receive; Go's runtime wakes blocked receivers in send order, so the
// caller that started waiting first is released first.
func (l *FairLock) Acquire(ctx context.Context, timeout time.Duration) (release func(), ok bool) {
	l.queue.Add(1)
	defer l.queue.Add(-1)

	var timer *time.Timer
	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		timeoutCh = timer.C
		defer timer.Stop()
	}

	select {
	case <-l.ticket:
		return func() { l.ticket <- struct{}{} }, true
	case <-ctx.Done():
		return nil, false
	case <-timeoutCh:
		return nil, false
	}
}

// QueueDepth returns the number of callers currently blocked on Acquire,
// for the coordinator's operator-facing gauge.
func (l *FairLock) QueueDepth() int64 { return l.queue.Load() }
