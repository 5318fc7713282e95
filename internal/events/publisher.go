package events

import "context"

// Publisher is the fire-and-forget event publication contract: it
// delivers lifecycle events onto named logical channels. Publish must
// never return an error that the pipeline runtime is expected to act on
// — implementations log failures themselves; the interface still
// returns error so tests can assert on it, but pipeline.Runtime
// deliberately discards it.
type Publisher interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// Channels names the four logical channels events are mapped onto.
// Concrete channel names (the pub/sub topic string) come from
// configuration; these are the logical roles.
type Channels struct {
	Started   string
	Progress  string
	Completed string
	Failed    string
}

// ChannelFor returns the configured channel name for an event type.
func (c Channels) ChannelFor(t EventType) string {
	switch t {
	case JobStarted:
		return c.Started
	case StepCompleted:
		return c.Progress
	case JobCompleted:
		return c.Completed
	case JobFailed, JobStopped:
		return c.Failed
	default:
		return c.Failed
	}
}
