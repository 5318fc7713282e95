// Package pipeline implements the step pipeline runtime: it drives one
// execution's ordered step list, maintains the shared execution context,
// publishes lifecycle events, updates the execution store, and honors
// cooperative cancellation. The capability-scoped execution handle and
// the panic-recovering run loop follow this codebase's usual job-worker
// shape, generalized here from a single job-run row to the ordered
// multi-step execution/step-execution model this service needs.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/events"
	"github.com/brightloop/batchcore/internal/metrics"
	"github.com/brightloop/batchcore/internal/platform/logger"
	"github.com/brightloop/batchcore/internal/store"
)

// Runtime runs one execution to a terminal status.
type Runtime struct {
	execStore store.ExecutionStore
	publisher events.Publisher
	channels  events.Channels
	log       *logger.Logger
	metrics   *metrics.Registry
}

// NewRuntime constructs a Runtime. metricsReg may be nil, in which case a
// private registry is used so every counter increment stays nil-safe.
func NewRuntime(execStore store.ExecutionStore, publisher events.Publisher, channels events.Channels, baseLog *logger.Logger, metricsReg *metrics.Registry) *Runtime {
	if metricsReg == nil {
		metricsReg = metrics.New()
	}
	return &Runtime{
		execStore: execStore,
		publisher: publisher,
		channels:  channels,
		log:       baseLog.With("component", "PipelineRuntime"),
		metrics:   metricsReg,
	}
}

// Run drives exec through jobDef's step list to a terminal status.
// params is the read-only view of exec's coerced parameters; cancel is
// the in-process flag the coordinator's Stop sets.
//
// Run never returns an error to its caller in the ordinary sense — every
// outcome (success, step failure, stop) is observable only through the
// persisted execution row and published events. Nothing inside a running
// execution should ever throw across the pipeline worker boundary. The
// returned error is reserved for the exceptional case where persisting
// the execution itself fails, which the caller (the coordinator's worker
// pool) logs and otherwise cannot act on.
func (r *Runtime) Run(ctx context.Context, exec *domain.JobExecution, jobDef *domain.JobDefinition, params domain.ParameterView, cancel *CancelFlag) error {
	execCtx := domain.NewExecutionContext(exec.ExecutionContext)
	execCtx.SetString("executionId", exec.ID.String())

	now := time.Now()
	exec.Status = domain.ExecutionStarted
	exec.StartTime = &now
	if err := r.execStore.UpdateExecution(ctx, exec); err != nil {
		return fmt.Errorf("pipeline: persist STARTED: %w", err)
	}
	r.publish(ctx, exec, jobDef, events.JobStarted, "", 0)

	var firstFailure error
	stopped := false
	completedSteps := 0

	for i, stepDef := range jobDef.Steps {
		// Re-read the cooperative-cancellation flag at each step boundary.
		// The coordinator flips this flag at the same instant it persists
		// STOPPING, so this is equivalent to a status re-read without a
		// store round-trip per step.
		if cancel.Canceled() {
			stopped = true
			r.abandonRemaining(ctx, exec.ID, jobDef.Steps[i:], i)
			break
		}

		stepExec, err := r.execStore.CreateStepExecution(ctx, exec.ID, stepDef.Name, i)
		if err != nil {
			r.log.Error("create step execution failed", "step", stepDef.Name, "error", err)
			firstFailure = err
			break
		}

		outcome := r.invokeStep(stepDef, execCtx, params, cancel)

		endTime := time.Now()
		stepExec.EndTime = &endTime
		if outcome.IsFailed() {
			stepExec.Status = domain.StepFailed
			stepExec.ExitCode = domain.ExitFailed
			_ = r.execStore.UpdateStepExecution(ctx, stepExec)
			if firstFailure == nil {
				firstFailure = outcome.Err()
			}
			break
		}

		stepExec.Status = domain.StepCompleted
		stepExec.ExitCode = domain.ExitCompleted
		stepExec.ReadCount = outcome.ReadCount()
		stepExec.WriteCount = outcome.WriteCount()
		stepExec.SkipCount = outcome.SkipCount()
		if err := r.execStore.UpdateStepExecution(ctx, stepExec); err != nil {
			r.log.Error("persist step execution failed", "step", stepDef.Name, "error", err)
		}
		completedSteps++
		progress := (completedSteps * 100) / len(jobDef.Steps)
		r.publish(ctx, exec, jobDef, events.StepCompleted, stepDef.Name, progress)
		r.metrics.StepCompleted.Inc()

		exec.ReadCount += stepExec.ReadCount
		exec.WriteCount += stepExec.WriteCount
		exec.SkipCount += stepExec.SkipCount
	}

	// A stop that arrives while the last step is running is observed here,
	// once that step has returned; its STEP_COMPLETED was already published.
	if !stopped && firstFailure == nil && cancel.Canceled() {
		stopped = true
	}

	raw, _ := execCtx.Marshal()
	exec.ExecutionContext = raw
	endTime := time.Now()
	exec.EndTime = &endTime

	var terminalEvent events.EventType
	switch {
	case stopped:
		exec.Status = domain.ExecutionStopped
		exec.ExitCode = domain.ExitStopped
		terminalEvent = events.JobStopped
	case firstFailure != nil:
		exec.Status = domain.ExecutionFailed
		exec.ExitCode = domain.ExitFailed
		exec.ExitDescription = firstFailure.Error()
		terminalEvent = events.JobFailed
	default:
		exec.Status = domain.ExecutionCompleted
		exec.ExitCode = domain.ExitCompleted
		terminalEvent = events.JobCompleted
	}

	if err := r.execStore.UpdateExecution(ctx, exec); err != nil {
		return fmt.Errorf("pipeline: persist terminal status: %w", err)
	}
	r.publish(ctx, exec, jobDef, terminalEvent, "", 0)
	r.metrics.ExecutionsTotal.Inc(strings.ToLower(string(exec.Status)))
	return nil
}

// invokeStep calls the step body with panic recovery, turning a panic
// into a Failed outcome rather than crashing the worker goroutine.
func (r *Runtime) invokeStep(stepDef domain.StepDefinition, execCtx *domain.ExecutionContext, params domain.ParameterView, cancel *CancelFlag) (outcome domain.StepOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("step body panic", "step", stepDef.Name, "panic", rec)
			outcome = domain.Failed(fmt.Errorf("step %q panicked: %v", stepDef.Name, rec))
		}
	}()
	return stepDef.Body(execCtx, params, cancel)
}

// abandonRemaining persists ABANDONED for every step from fromOrdinal
// onward that never ran because a stop was observed first.
func (r *Runtime) abandonRemaining(ctx context.Context, execID uuid.UUID, steps []domain.StepDefinition, fromOrdinal int) {
	for i, s := range steps {
		stepExec, err := r.execStore.CreateStepExecution(ctx, execID, s.Name, fromOrdinal+i)
		if err != nil {
			continue
		}
		now := time.Now()
		stepExec.Status = domain.StepAbandoned
		stepExec.ExitCode = domain.ExitAbandoned
		stepExec.EndTime = &now
		_ = r.execStore.UpdateStepExecution(ctx, stepExec)
	}
}

func (r *Runtime) publish(ctx context.Context, exec *domain.JobExecution, jobDef *domain.JobDefinition, t events.EventType, stepName string, progress int) {
	env := events.Envelope{
		EventType:       t,
		Timestamp:       time.Now(),
		ExecutionID:     exec.ID.String(),
		JobName:         exec.JobName,
		Status:          string(exec.Status),
		ExitCode:        string(exec.ExitCode),
		ExitDescription: exec.ExitDescription,
		StartTime:       exec.StartTime,
		EndTime:         exec.EndTime,
		TriggerID:       exec.TriggerID,
		StepCount:       len(jobDef.Steps),
		ReadCount:       exec.ReadCount,
		WriteCount:      exec.WriteCount,
		SkipCount:       exec.SkipCount,
		StepName:        stepName,
		Progress:        progress,
	}
	channel := r.channels.ChannelFor(t)
	if err := r.publisher.Publish(ctx, channel, env); err != nil {
		// Fire-and-forget: publication failures are logged only and must
		// never propagate back to the pipeline runtime or affect the
		// execution's outcome.
		r.log.Warn("event publish failed", "eventType", t, "channel", channel, "error", err)
	}
}
