package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/brightloop/batchcore/internal/platform/logger"
)

// redisPublisher publishes event envelopes over Redis pub/sub, one
// PUBLISH per event onto the channel named by the caller, so any number
// of logical channels can share one connection.
type redisPublisher struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewRedisPublisher dials addr and pings it once at construction time so
// misconfiguration surfaces at startup rather than on the first trigger.
func NewRedisPublisher(log *logger.Logger, addr string) (Publisher, error) {
	if log == nil {
		return nil, fmt.Errorf("events: logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("events: redis addr required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("events: redis ping: %w", err)
	}
	return &redisPublisher{log: log.With("component", "EventPublisher"), rdb: rdb}, nil
}

// Publish marshals env and issues a single PUBLISH on channel. This is
// fire-and-forget delivery: failures are logged and returned, but
// pipeline.Runtime never propagates this error into an execution's
// outcome.
func (p *redisPublisher) Publish(ctx context.Context, channel string, env Envelope) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("events: publisher not initialized")
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	if err := p.rdb.Publish(ctx, channel, raw).Err(); err != nil {
		p.log.Warn("event publish failed", "channel", channel, "eventType", env.EventType, "error", err)
		return err
	}
	return nil
}

// Close releases the underlying Redis client.
func (p *redisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
