package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/dbctx"
)

// MemoryExecutionStore is an in-process ExecutionStore, mirroring
// events.MemoryPublisher's role: it lets pipeline/coordinator tests
// exercise the full create/update/find contract without a Postgres
// instance. It is not test-only scaffolding in the Go sense (no _test.go
// build tag) because nothing about it depends on the testing package;
// keeping fakes as ordinary importable types lets other packages reuse
// them.
type MemoryExecutionStore struct {
	mu         sync.Mutex
	instances  map[uuid.UUID]*domain.JobInstance
	byNameKey  map[string]uuid.UUID
	executions map[uuid.UUID]*domain.JobExecution
	steps      map[uuid.UUID][]*domain.StepExecution
}

// NewMemoryExecutionStore returns an empty in-memory store.
func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{
		instances:  make(map[uuid.UUID]*domain.JobInstance),
		byNameKey:  make(map[string]uuid.UUID),
		executions: make(map[uuid.UUID]*domain.JobExecution),
		steps:      make(map[uuid.UUID][]*domain.StepExecution),
	}
}

func instanceKey(name, identifyingKey string) string { return name + "\x00" + identifyingKey }

func (s *MemoryExecutionStore) CreateInstance(dc dbctx.Context, name, identifyingKey string) (*domain.JobInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := instanceKey(name, identifyingKey)
	if id, ok := s.byNameKey[k]; ok {
		return s.instances[id], nil
	}
	inst := &domain.JobInstance{
		ID:             uuid.New(),
		Name:           name,
		IdentifyingKey: identifyingKey,
		CreatedAt:      time.Now(),
	}
	s.instances[inst.ID] = inst
	s.byNameKey[k] = inst.ID
	return inst, nil
}

func (s *MemoryExecutionStore) CreateExecution(dc dbctx.Context, instance *domain.JobInstance, jobName, triggerID string, allParams domain.JobParameters) (*domain.JobExecution, error) {
	snapshot, err := marshalParams(allParams)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exec := &domain.JobExecution{
		ID:                 uuid.New(),
		InstanceID:         instance.ID,
		JobName:            jobName,
		TriggerID:          triggerID,
		Status:             domain.ExecutionStarting,
		ParametersSnapshot: snapshot,
		ExecutionContext:   []byte("{}"),
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	s.executions[exec.ID] = exec
	return exec, nil
}

func (s *MemoryExecutionStore) UpdateExecution(ctx context.Context, exec *domain.JobExecution) error {
	if exec == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *exec
	cp.UpdatedAt = time.Now()
	s.executions[exec.ID] = &cp
	return nil
}

func (s *MemoryExecutionStore) CreateStepExecution(ctx context.Context, executionID uuid.UUID, stepName string, ordinal int) (*domain.StepExecution, error) {
	now := time.Now()
	step := &domain.StepExecution{
		ID:          uuid.New(),
		ExecutionID: executionID,
		Name:        stepName,
		Status:      domain.StepStarted,
		StartTime:   &now,
		Ordinal:     ordinal,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.steps[executionID] = append(s.steps[executionID], step)
	s.mu.Unlock()
	return step, nil
}

func (s *MemoryExecutionStore) UpdateStepExecution(ctx context.Context, step *domain.StepExecution) error {
	if step == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.steps[step.ExecutionID] {
		if existing.ID == step.ID {
			*existing = *step
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	return nil
}

func (s *MemoryExecutionStore) FindExecution(ctx context.Context, id uuid.UUID) (*domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exec, ok := s.executions[id]
	if !ok {
		return nil, nil
	}
	cp := *exec
	return &cp, nil
}

func (s *MemoryExecutionStore) FindRecentInstances(ctx context.Context, name string, page, size int) ([]*domain.JobInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.JobInstance
	for _, inst := range s.instances {
		if inst.Name == name {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	start := page * size
	if start >= len(out) {
		return nil, nil
	}
	end := start + size
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], nil
}

func (s *MemoryExecutionStore) ListExecutions(ctx context.Context, instanceID uuid.UUID) ([]*domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.JobExecution
	for _, e := range s.executions {
		if e.InstanceID == instanceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryExecutionStore) FindExecutionByTriggerID(ctx context.Context, triggerID string) (*domain.JobExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.executions {
		if e.TriggerID == triggerID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryExecutionStore) AbandonOrphaned(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for _, e := range s.executions {
		if e.Status == domain.ExecutionStarting || e.Status == domain.ExecutionStarted {
			e.Status = domain.ExecutionAbandoned
			e.ExitCode = domain.ExitAbandoned
			e.ExitDescription = "orphaned at process restart"
			e.EndTime = &now
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

var _ ExecutionStore = (*MemoryExecutionStore)(nil)
