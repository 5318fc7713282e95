package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/events"
	"github.com/brightloop/batchcore/internal/platform/logger"
	"github.com/brightloop/batchcore/internal/store"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func testChannels() events.Channels {
	return events.Channels{Started: "started", Progress: "progress", Completed: "completed", Failed: "failed"}
}

func newExecution(jobName string) *domain.JobExecution {
	return &domain.JobExecution{
		ID:        uuid.New(),
		JobName:   jobName,
		TriggerID: "t-" + uuid.NewString(),
		Status:    domain.ExecutionStarting,
	}
}

func TestRunHappyPathCompletesAllSteps(t *testing.T) {
	execStore := store.NewMemoryExecutionStore()
	pub := events.NewMemoryPublisher()
	rt := NewRuntime(execStore, pub, testChannels(), testLogger(t), nil)

	jobDef := &domain.JobDefinition{
		Name: "demo",
		Steps: []domain.StepDefinition{
			{Name: "fetch", Body: func(ctx *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				ctx.SetLong("fetched", 10)
				return domain.FinishedCounts(10, 0, 0)
			}},
			{Name: "load", Body: func(ctx *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				n, _ := ctx.Long("fetched")
				return domain.FinishedCounts(0, n, 0)
			}},
		},
	}

	exec := newExecution(jobDef.Name)
	cancel := NewCancelFlag()
	if err := rt.Run(context.Background(), exec, jobDef, domain.NewParameterView(nil), cancel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if exec.Status != domain.ExecutionCompleted {
		t.Fatalf("Status = %v, want COMPLETED", exec.Status)
	}
	if exec.ReadCount != 10 || exec.WriteCount != 10 {
		t.Fatalf("ReadCount/WriteCount = %d/%d, want 10/10", exec.ReadCount, exec.WriteCount)
	}

	persisted, err := execStore.FindExecution(context.Background(), exec.ID)
	if err != nil || persisted == nil {
		t.Fatalf("FindExecution: %v, %v", persisted, err)
	}
	if persisted.Status != domain.ExecutionCompleted {
		t.Fatalf("persisted Status = %v, want COMPLETED", persisted.Status)
	}

	published := pub.Snapshot()
	if len(published) != 4 { // started, step-completed x2, completed
		t.Fatalf("published %d events, want 4: %+v", len(published), published)
	}
	if published[0].Envelope.EventType != events.JobStarted {
		t.Fatalf("first event = %v, want JOB_STARTED", published[0].Envelope.EventType)
	}
	last := published[len(published)-1]
	if last.Envelope.EventType != events.JobCompleted {
		t.Fatalf("last event = %v, want JOB_COMPLETED", last.Envelope.EventType)
	}
}

func TestRunStepFailureStopsRemainingSteps(t *testing.T) {
	execStore := store.NewMemoryExecutionStore()
	pub := events.NewMemoryPublisher()
	rt := NewRuntime(execStore, pub, testChannels(), testLogger(t), nil)

	ranSecond := false
	jobDef := &domain.JobDefinition{
		Name: "demo",
		Steps: []domain.StepDefinition{
			{Name: "fail-here", Body: func(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				return domain.Failed(errors.New("boom"))
			}},
			{Name: "never-runs", Body: func(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				ranSecond = true
				return domain.Finished()
			}},
		},
	}

	exec := newExecution(jobDef.Name)
	cancel := NewCancelFlag()
	if err := rt.Run(context.Background(), exec, jobDef, domain.NewParameterView(nil), cancel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if exec.Status != domain.ExecutionFailed {
		t.Fatalf("Status = %v, want FAILED", exec.Status)
	}
	if exec.ExitDescription != "boom" {
		t.Fatalf("ExitDescription = %q, want %q", exec.ExitDescription, "boom")
	}
	if ranSecond {
		t.Fatalf("second step ran after the first failed")
	}

	published := pub.Snapshot()
	last := published[len(published)-1]
	if last.Envelope.EventType != events.JobFailed {
		t.Fatalf("last event = %v, want JOB_FAILED", last.Envelope.EventType)
	}
}

func TestRunStopMidExecutionAbandonsRemainingSteps(t *testing.T) {
	execStore := store.NewMemoryExecutionStore()
	pub := events.NewMemoryPublisher()
	rt := NewRuntime(execStore, pub, testChannels(), testLogger(t), nil)

	cancel := NewCancelFlag()
	jobDef := &domain.JobDefinition{
		Name: "demo",
		Steps: []domain.StepDefinition{
			{Name: "first", Body: func(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				cancel.Set() // simulate the coordinator's Stop() firing mid-step
				return domain.Finished()
			}},
			{Name: "second", Body: func(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				t.Fatalf("second step should never run after cancellation")
				return domain.Finished()
			}},
		},
	}

	exec := newExecution(jobDef.Name)
	if err := rt.Run(context.Background(), exec, jobDef, domain.NewParameterView(nil), cancel); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if exec.Status != domain.ExecutionStopped {
		t.Fatalf("Status = %v, want STOPPED", exec.Status)
	}
	if exec.ExitCode != domain.ExitStopped {
		t.Fatalf("ExitCode = %v, want STOPPED", exec.ExitCode)
	}

	published := pub.Snapshot()
	last := published[len(published)-1]
	if last.Envelope.EventType != events.JobStopped {
		t.Fatalf("last event = %v, want JOB_STOPPED", last.Envelope.EventType)
	}
}

func TestRunRecoversFromStepPanic(t *testing.T) {
	execStore := store.NewMemoryExecutionStore()
	pub := events.NewMemoryPublisher()
	rt := NewRuntime(execStore, pub, testChannels(), testLogger(t), nil)

	jobDef := &domain.JobDefinition{
		Name: "demo",
		Steps: []domain.StepDefinition{
			{Name: "panics", Body: func(_ *domain.ExecutionContext, _ domain.ParameterView, _ domain.CancelToken) domain.StepOutcome {
				panic("unexpected nil pointer")
			}},
		},
	}

	exec := newExecution(jobDef.Name)
	cancel := NewCancelFlag()
	if err := rt.Run(context.Background(), exec, jobDef, domain.NewParameterView(nil), cancel); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if exec.Status != domain.ExecutionFailed {
		t.Fatalf("Status = %v, want FAILED after a step panic", exec.Status)
	}
}
