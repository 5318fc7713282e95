// Package app wires the coordinator, pipeline runtime, aggregator,
// stores, and admin surface into a runnable process: a single
// constructor that opens its dependencies in order (logger, config, db,
// stores, event bus, services, handlers) and an explicit Start/Run/Close
// lifecycle rather than an ambient DI container.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/brightloop/batchcore/internal/adminhttp"
	"github.com/brightloop/batchcore/internal/aggregator"
	"github.com/brightloop/batchcore/internal/aggstore"
	"github.com/brightloop/batchcore/internal/coordinator"
	"github.com/brightloop/batchcore/internal/events"
	"github.com/brightloop/batchcore/internal/gateway"
	"github.com/brightloop/batchcore/internal/jobs"
	"github.com/brightloop/batchcore/internal/manifest"
	"github.com/brightloop/batchcore/internal/metrics"
	"github.com/brightloop/batchcore/internal/platform/envutil"
	"github.com/brightloop/batchcore/internal/platform/logger"
	"github.com/brightloop/batchcore/internal/platform/pgdb"
	"github.com/brightloop/batchcore/internal/registry"
	"github.com/brightloop/batchcore/internal/store"

	"github.com/gin-gonic/gin"
)

// App bundles every wired component for cmd/main.go to drive.
type App struct {
	Log         *logger.Logger
	DB          *gorm.DB
	Cfg         Config
	Registry    *registry.Registry
	Coordinator *coordinator.Coordinator
	Metrics     *metrics.Registry
	AdminRouter *gin.Engine

	cancel context.CancelFunc
}

// New constructs the full dependency graph: logger, config, Postgres
// (with AutoMigrate and the orphaned-execution recovery sweep), the
// event publisher (Redis if REDIS_ADDR is set, otherwise an in-process
// publisher suitable for single-box/dev runs), the job registry loaded
// from the embedded manifest, the coordinator, and the admin HTTP
// surface.
func New() (*App, error) {
	logMode := envutil.Str("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("app: init logger: %w", err)
	}

	cfg := LoadConfig(log)

	db, err := pgdb.Open(log)
	if err != nil {
		return nil, fmt.Errorf("app: open db: %w", err)
	}
	if err := pgdb.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("app: automigrate: %w", err)
	}

	execStore := store.NewGormExecutionStore(db, log)
	aggStore := aggstore.NewGormAggregationStore(db, log)

	if _, err := execStore.AbandonOrphaned(context.Background()); err != nil {
		log.Warn("orphaned-execution recovery sweep failed", "error", err)
	}

	var publisher events.Publisher
	if cfg.RedisAddr != "" {
		rp, err := events.NewRedisPublisher(log, cfg.RedisAddr)
		if err != nil {
			log.Warn("redis publisher unavailable, falling back to in-process publisher", "error", err)
			publisher = events.NewMemoryPublisher()
		} else {
			publisher = rp
		}
	} else {
		publisher = events.NewMemoryPublisher()
	}

	metricsReg := metrics.New()
	engine := aggregator.NewEngine(aggStore, log, metricsReg)
	bindings := jobs.Bindings{
		Gateway:            gateway.NewFake(1000),
		Engine:             engine,
		Log:                log,
		AggregationDepth:   cfg.AggregationDepth,
		StreamingFlushSize: cfg.StreamingFlush,
	}

	jobDefs, err := manifest.Load(bindings.StepFuncs())
	if err != nil {
		return nil, fmt.Errorf("app: load manifest: %w", err)
	}
	reg := registry.New()
	for _, def := range jobDefs {
		if err := reg.Register(def); err != nil {
			return nil, fmt.Errorf("app: register job: %w", err)
		}
	}

	coordCfg := coordinator.Config{
		QueueTimeout:   cfg.QueueTimeout,
		WorkerPoolSize: int64(cfg.WorkerPoolSize),
	}
	coord := coordinator.New(reg, execStore, publisher, cfg.Channels, coordCfg, log, metricsReg)

	return &App{
		Log:         log,
		DB:          db,
		Cfg:         cfg,
		Registry:    reg,
		Coordinator: coord,
		Metrics:     metricsReg,
		AdminRouter: adminhttp.New(coord, metricsReg),
	}, nil
}

// Start begins background work. There is no background worker loop to
// start beyond what Coordinator.Trigger already spawns per execution;
// Start exists for lifecycle symmetry with Close and as the place a
// future scheduler-poll loop would be wired in.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	_, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
}

// Run serves the admin/observability HTTP surface on addr.
func (a *App) Run(addr string) error {
	if a == nil || a.AdminRouter == nil {
		return fmt.Errorf("app: not initialized")
	}
	return a.AdminRouter.Run(addr)
}

// Close releases background work and flushes the logger.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
