package app

import (
	"time"

	"github.com/brightloop/batchcore/internal/events"
	"github.com/brightloop/batchcore/internal/platform/envutil"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// Config is the full set of environment-resolved tunables: the
// coordinator/aggregator/event-channel keys the core reads, plus the
// ambient process keys (logging, database, Redis, worker pool, port).
type Config struct {
	QueueTimeout     time.Duration
	StreamingFlush   int
	AggregationDepth int
	Channels         events.Channels

	LogMode        string
	DatabaseURL    string
	RedisAddr      string
	WorkerPoolSize int
	Port           string
}

// LoadConfig resolves Config from the environment and logs the resolved
// values once at debug level so a deployment's effective config is
// visible in its startup logs without a separate dump command. LogMode
// and DatabaseURL are not logged, and RedisAddr is logged only as
// whether it is set.
func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		QueueTimeout:     envutil.Duration("COORDINATOR_QUEUE_TIMEOUT_SECONDS", 120*time.Second),
		StreamingFlush:   envutil.Int("STREAMING_FLUSH_SIZE", 5000),
		AggregationDepth: envutil.Int("AGGREGATION_DEPTH", 3),
		Channels: events.Channels{
			Started:   envutil.Str("CHANNEL_STARTED", "batchcore.started"),
			Progress:  envutil.Str("CHANNEL_PROGRESS", "batchcore.progress"),
			Completed: envutil.Str("CHANNEL_COMPLETED", "batchcore.completed"),
			Failed:    envutil.Str("CHANNEL_FAILED", "batchcore.failed"),
		},
		LogMode:        envutil.Str("LOG_MODE", "development"),
		DatabaseURL:    envutil.Str("DATABASE_URL", ""),
		RedisAddr:      envutil.Str("REDIS_ADDR", ""),
		WorkerPoolSize: envutil.Int("WORKER_POOL_SIZE", 16),
		Port:           envutil.Str("PORT", "8080"),
	}
	log.Debug("resolved configuration",
		"queueTimeout", cfg.QueueTimeout,
		"streamingFlush", cfg.StreamingFlush,
		"aggregationDepth", cfg.AggregationDepth,
		"channels", cfg.Channels,
		"workerPoolSize", cfg.WorkerPoolSize,
		"port", cfg.Port,
		"redisConfigured", cfg.RedisAddr != "",
	)
	return cfg
}
