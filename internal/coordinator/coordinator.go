// Package coordinator implements the trigger-and-launch coordinator: it
// correlates external trigger ids with internal executions, serializes
// metadata creation against the execution store behind a single fair
// lock, and hands the execution to an async worker pool that invokes the
// step pipeline runtime outside the lock. The shape follows this
// codebase's usual orchestrator pattern — validate, acquire, persist,
// release, dispatch — combined with a bounded worker pool built on
// golang.org/x/sync/semaphore.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/brightloop/batchcore/internal/coreerr"
	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/events"
	"github.com/brightloop/batchcore/internal/lock"
	"github.com/brightloop/batchcore/internal/metrics"
	"github.com/brightloop/batchcore/internal/pipeline"
	"github.com/brightloop/batchcore/internal/platform/dbctx"
	"github.com/brightloop/batchcore/internal/platform/logger"
	"github.com/brightloop/batchcore/internal/registry"
	"github.com/brightloop/batchcore/internal/store"
)

// Config holds the coordinator's tunables.
type Config struct {
	// QueueTimeout bounds how long trigger() will wait to acquire the
	// metadata lock before failing with ErrLockTimeout (default 120s).
	QueueTimeout time.Duration

	// WorkerPoolSize bounds the number of job bodies that may run
	// concurrently as backpressure. Trigger requests beyond capacity
	// still queue at the metadata lock, not at this pool — the pool only
	// bounds job-body concurrency, not acceptance.
	WorkerPoolSize int64

	// RecentInstancesPageSize bounds each page scanned by
	// FindByTriggerIDScan's fallback linear search across recent
	// instances for a job name.
	RecentInstancesPageSize int
}

// DefaultConfig returns the coordinator's default tunables.
func DefaultConfig() Config {
	return Config{
		QueueTimeout:            120 * time.Second,
		WorkerPoolSize:          16,
		RecentInstancesPageSize: 100,
	}
}

// Coordinator is the trigger-and-launch coordinator.
type Coordinator struct {
	registry  *registry.Registry
	execStore store.ExecutionStore
	publisher events.Publisher
	channels  events.Channels
	cfg       Config
	log       *logger.Logger

	metaLock *lock.FairLock
	pool     *semaphore.Weighted
	metrics  *metrics.Registry

	cancelFlags *cancelFlagTable
}

// New constructs a Coordinator wired against its dependencies. metricsReg
// may be nil, in which case the Coordinator records into a private
// metrics.New() registry of its own.
func New(reg *registry.Registry, execStore store.ExecutionStore, publisher events.Publisher, channels events.Channels, cfg Config, baseLog *logger.Logger, metricsReg *metrics.Registry) *Coordinator {
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = DefaultConfig().QueueTimeout
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultConfig().WorkerPoolSize
	}
	if cfg.RecentInstancesPageSize <= 0 {
		cfg.RecentInstancesPageSize = DefaultConfig().RecentInstancesPageSize
	}
	if metricsReg == nil {
		metricsReg = metrics.New()
	}
	return &Coordinator{
		registry:    reg,
		execStore:   execStore,
		publisher:   publisher,
		channels:    channels,
		cfg:         cfg,
		log:         baseLog.With("component", "Coordinator"),
		metaLock:    lock.New(),
		pool:        semaphore.NewWeighted(cfg.WorkerPoolSize),
		metrics:     metricsReg,
		cancelFlags: newCancelFlagTable(),
	}
}

// Trigger resolves the job, coerces parameters (always injecting
// identifying triggerId/timestamp), acquires
// the metadata lock with a bounded wait, materialize the instance and
// execution under the lock, release, then submit to the async worker
// pool. It returns as soon as the execution row exists — it never waits
// for the job body.
func (c *Coordinator) Trigger(ctx context.Context, jobName, triggerID string, params map[string]string) (TriggerResult, error) {
	jobDef, ok := c.registry.Lookup(jobName)
	if !ok {
		c.metrics.TriggersTotal.Inc("unknown_job")
		return TriggerResult{}, fmt.Errorf("coordinator: job %q: %w", jobName, coreerr.ErrUnknownJob)
	}
	if triggerID == "" {
		c.metrics.TriggersTotal.Inc("parameter_coercion")
		return TriggerResult{}, fmt.Errorf("coordinator: %w: triggerId must be non-empty", coreerr.ErrParameterCoercion)
	}

	allParams, err := buildParameters(jobDef, triggerID, params)
	if err != nil {
		c.metrics.TriggersTotal.Inc("parameter_coercion")
		return TriggerResult{}, fmt.Errorf("coordinator: %w: %v", coreerr.ErrParameterCoercion, err)
	}

	release, ok := c.metaLock.Acquire(ctx, c.cfg.QueueTimeout)
	if !ok {
		c.log.Warn("metadata lock timeout", "jobName", jobName, "triggerId", triggerID, "queueDepth", c.metaLock.QueueDepth())
		c.metrics.TriggersTotal.Inc("lock_timeout")
		return TriggerResult{}, fmt.Errorf("coordinator: %w", coreerr.ErrLockTimeout)
	}

	exec, err := c.createWithRetry(ctx, jobDef.Name, triggerID, allParams)
	release()
	if err != nil {
		c.metrics.TriggersTotal.Inc("storage_failure")
		return TriggerResult{}, fmt.Errorf("coordinator: %w: %v", coreerr.ErrStorageFailure, err)
	}
	c.metrics.TriggersTotal.Inc("accepted")

	cancelFlag := c.cancelFlags.create(exec.ID)
	c.dispatch(exec, jobDef, allParams, cancelFlag)

	return TriggerResult{
		Success:   true,
		Execution: exec,
		JobName:   jobDef.Name,
		TriggerID: triggerID,
		Status:    exec.Status,
		Message:   "accepted",
	}, nil
}

// createWithRetry wraps the metadata-creation critical section (find-or-
// create instance, create execution) in a bounded retry for transient
// storage errors (three attempts with backoff). This whole call runs
// while the caller holds the metadata lock.
func (c *Coordinator) createWithRetry(ctx context.Context, jobName, triggerID string, params domain.JobParameters) (*domain.JobExecution, error) {
	const maxAttempts = 3
	dc := dbctx.Context{Ctx: ctx}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		inst, err := c.execStore.CreateInstance(dc, jobName, params.IdentifyingKey())
		if err == nil {
			exec, err := c.execStore.CreateExecution(dc, inst, jobName, triggerID, params)
			if err == nil {
				return exec, nil
			}
			lastErr = err
		} else {
			lastErr = err
		}
		if attempt < maxAttempts {
			backoff := time.Duration(attempt) * 25 * time.Millisecond
			c.log.Warn("metadata creation retry", "jobName", jobName, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}

// dispatch submits exec to the bounded async worker pool, which invokes
// the step pipeline runtime. The pool bounds job-body concurrency;
// acquisition here blocks the spawning goroutine, not the caller of
// Trigger, which has already returned by the time this runs in its own
// goroutine.
func (c *Coordinator) dispatch(exec *domain.JobExecution, jobDef *domain.JobDefinition, params domain.JobParameters, cancelFlag *pipeline.CancelFlag) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				c.log.Error("pipeline worker panic", "executionId", exec.ID, "jobName", jobDef.Name, "panic", rec)
			}
		}()
		ctx := context.Background()
		if err := c.pool.Acquire(ctx, 1); err != nil {
			c.log.Error("worker pool acquire failed", "executionId", exec.ID, "error", err)
			return
		}
		defer c.pool.Release(1)
		defer c.cancelFlags.remove(exec.ID)

		runtime := pipeline.NewRuntime(c.execStore, c.publisher, c.channels, c.log, c.metrics)
		view := domain.NewParameterView(params)
		if err := runtime.Run(ctx, exec, jobDef, view, cancelFlag); err != nil {
			c.log.Error("pipeline run failed", "executionId", exec.ID, "jobName", jobDef.Name, "error", err)
		}
	}()
}

// Stop requests cooperative cancellation of an execution: if it is in a
// running state, atomically transitions it to STOPPING and persists it,
// returning true; otherwise returns false without mutating anything, so
// calling Stop on an already-terminal execution is idempotent.
func (c *Coordinator) Stop(ctx context.Context, executionID uuid.UUID) (bool, error) {
	exec, err := c.execStore.FindExecution(ctx, executionID)
	if err != nil {
		return false, fmt.Errorf("coordinator: stop: %w", err)
	}
	if exec == nil {
		return false, nil
	}
	if exec.Status.Terminal() || exec.Status == domain.ExecutionStopping {
		return false, nil
	}
	if exec.Status != domain.ExecutionStarting && exec.Status != domain.ExecutionStarted {
		return false, nil
	}
	exec.Status = domain.ExecutionStopping
	if err := c.execStore.UpdateExecution(ctx, exec); err != nil {
		return false, fmt.Errorf("coordinator: stop: persist: %w", err)
	}
	c.cancelFlags.signal(executionID)
	c.log.Info("stop requested", "executionId", executionID)
	return true, nil
}

// FindByTriggerID looks up the execution carrying triggerID. The primary
// path is the store's direct unique-index lookup, since triggerId
// uniquely identifies at most one execution; the bounded-page
// recent-instance scan is kept as FindByTriggerIDScan for stores that
// cannot index on trigger id directly.
func (c *Coordinator) FindByTriggerID(ctx context.Context, triggerID string) (*domain.JobExecution, error) {
	return c.execStore.FindExecutionByTriggerID(ctx, triggerID)
}

// FindByTriggerIDScan is the fallback bounded-page linear scan: it walks
// recent instances (bounded page size) across all registered job names
// and returns the first execution whose TriggerID equals triggerID.
func (c *Coordinator) FindByTriggerIDScan(ctx context.Context, triggerID string) (*domain.JobExecution, error) {
	for name := range c.registry.Names() {
		instances, err := c.execStore.FindRecentInstances(ctx, name, 0, c.cfg.RecentInstancesPageSize)
		if err != nil {
			return nil, fmt.Errorf("coordinator: scan: %w", err)
		}
		for _, inst := range instances {
			execs, err := c.execStore.ListExecutions(ctx, inst.ID)
			if err != nil {
				return nil, fmt.Errorf("coordinator: scan: %w", err)
			}
			for _, e := range execs {
				if e.TriggerID == triggerID {
					return e, nil
				}
			}
		}
	}
	return nil, nil
}

// QueueDepth exposes the current metadata-lock wait-queue depth for
// operators.
func (c *Coordinator) QueueDepth() int64 { return c.metaLock.QueueDepth() }

func buildParameters(jobDef *domain.JobDefinition, triggerID string, raw map[string]string) (domain.JobParameters, error) {
	params := make(domain.JobParameters, len(raw)+2)
	params["triggerId"] = domain.ParameterValue{Type: domain.ParamString, Identifying: true, StrVal: triggerID}
	params["timestamp"] = domain.ParameterValue{Type: domain.ParamLong, Identifying: true, LongVal: time.Now().UnixMilli()}

	for name, strVal := range raw {
		key, ok := jobDef.ParameterKeys[name]
		if !ok {
			// Unrecognized keys are accepted as non-identifying strings
			// rather than rejected, so callers can pass metadata that
			// isn't part of the job's declared schema.
			params[name] = domain.ParameterValue{Type: domain.ParamString, StrVal: strVal}
			continue
		}
		v, err := domain.CoerceParam(key, strVal)
		if err != nil {
			return nil, err
		}
		params[name] = v
	}

	for name, key := range jobDef.ParameterKeys {
		if _, present := params[name]; present {
			continue
		}
		if key.Default == nil {
			continue
		}
		params[name] = defaultParamValue(key)
	}

	return params, nil
}

func defaultParamValue(key domain.ParameterKey) domain.ParameterValue {
	v := domain.ParameterValue{Type: key.Type, Identifying: key.Identifying}
	switch key.Type {
	case domain.ParamString:
		if s, ok := key.Default.(string); ok {
			v.StrVal = s
		}
	case domain.ParamLong:
		switch n := key.Default.(type) {
		case int:
			v.LongVal = int64(n)
		case int64:
			v.LongVal = n
		case float64:
			v.LongVal = int64(n)
		}
	case domain.ParamDouble:
		if f, ok := key.Default.(float64); ok {
			v.DoubleVal = f
		}
	case domain.ParamBool:
		if b, ok := key.Default.(bool); ok {
			v.BoolVal = b
		}
	}
	return v
}
