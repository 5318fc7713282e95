package events

import (
	"context"
	"sync"
)

// MemoryPublisher is an in-process Publisher used by tests that need to
// assert on emitted events without standing up Redis.
type MemoryPublisher struct {
	mu       sync.Mutex
	Received []Published
}

// Published pairs a channel name with the envelope sent to it.
type Published struct {
	Channel  string
	Envelope Envelope
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, channel string, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Received = append(p.Received, Published{Channel: channel, Envelope: env})
	return nil
}

// Snapshot returns a copy of everything published so far.
func (p *MemoryPublisher) Snapshot() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.Received))
	copy(out, p.Received)
	return out
}
