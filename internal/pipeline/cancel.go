package pipeline

import "sync/atomic"

// CancelFlag is the in-process cooperative-cancellation primitive bound
// to one execution. The coordinator's Stop sets it the instant it also
// persists the STOPPING status, so a step body's cancel.Canceled() poll
// is a single atomic load rather than a store round-trip. The pipeline
// runtime itself only rereads this flag at step boundaries (before each
// step and once more after the last one); a step body
// that wants finer-grained cancellation can poll it as often as it
// likes.
type CancelFlag struct {
	stopped atomic.Bool
}

// NewCancelFlag returns an unset flag.
func NewCancelFlag() *CancelFlag { return &CancelFlag{} }

// Set marks the flag as stopped. Idempotent.
func (f *CancelFlag) Set() { f.stopped.Store(true) }

// Canceled implements domain.CancelToken.
func (f *CancelFlag) Canceled() bool { return f.stopped.Load() }
