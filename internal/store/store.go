// Package store implements the execution store: the durable record of
// job instances, executions, parameters, and step executions. The
// dbctx.Context-threaded, transaction-aware method shapes follow this
// repo's usual repository pattern, applied here across the
// instance/execution/step-execution split a job run needs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brightloop/batchcore/internal/domain"
	"github.com/brightloop/batchcore/internal/platform/dbctx"
	"github.com/brightloop/batchcore/internal/platform/logger"
)

// ExecutionStore is the execution store's adapter contract.
type ExecutionStore interface {
	// CreateInstance finds or creates the JobInstance for (name,
	// identifyingKey). dc carries the request context and, when the
	// caller is already inside a transaction, the bound *gorm.DB to run
	// against instead of the store's own connection (the coordinator
	// passes no transaction).
	CreateInstance(dc dbctx.Context, name, identifyingKey string) (*domain.JobInstance, error)

	// CreateExecution persists a new execution in STARTING status under
	// instance, with allParams as its parameters snapshot.
	CreateExecution(dc dbctx.Context, instance *domain.JobInstance, jobName, triggerID string, allParams domain.JobParameters) (*domain.JobExecution, error)

	// UpdateExecution persists status, times, exit status, and execution
	// context for an already-created execution.
	UpdateExecution(ctx context.Context, exec *domain.JobExecution) error

	// CreateStepExecution appends a new StepExecution row in STARTED
	// status at the given ordinal.
	CreateStepExecution(ctx context.Context, executionID uuid.UUID, stepName string, ordinal int) (*domain.StepExecution, error)

	// UpdateStepExecution persists a step execution's terminal fields.
	UpdateStepExecution(ctx context.Context, step *domain.StepExecution) error

	// FindExecution looks up one execution by id.
	FindExecution(ctx context.Context, id uuid.UUID) (*domain.JobExecution, error)

	// FindRecentInstances returns a bounded page of instances for name,
	// newest first, for use by findByTriggerId-style correlation scans.
	FindRecentInstances(ctx context.Context, name string, page, size int) ([]*domain.JobInstance, error)

	// ListExecutions returns every execution belonging to instance.
	ListExecutions(ctx context.Context, instanceID uuid.UUID) ([]*domain.JobExecution, error)

	// FindExecutionByTriggerID looks up an execution directly by its
	// unique trigger id: a trigger id identifies at most one execution.
	FindExecutionByTriggerID(ctx context.Context, triggerID string) (*domain.JobExecution, error)

	// AbandonOrphaned transitions any execution still STARTING or
	// STARTED from a previous process lifetime to ABANDONED. Run once at
	// startup so a crash never leaves an execution stuck in a
	// non-terminal state forever.
	AbandonOrphaned(ctx context.Context) (int64, error)
}

type gormExecutionStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGormExecutionStore constructs a Postgres/GORM-backed ExecutionStore.
func NewGormExecutionStore(db *gorm.DB, baseLog *logger.Logger) ExecutionStore {
	return &gormExecutionStore{db: db, log: baseLog.With("component", "ExecutionStore")}
}

func (s *gormExecutionStore) CreateInstance(dc dbctx.Context, name, identifyingKey string) (*domain.JobInstance, error) {
	conn := dc.Resolve(s.db)
	var inst domain.JobInstance
	err := conn.WithContext(dc.Ctx).
		Where("name = ? AND identifying_key = ?", name, identifyingKey).
		First(&inst).Error
	if err == nil {
		return &inst, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	inst = domain.JobInstance{
		ID:             uuid.New(),
		Name:           name,
		IdentifyingKey: identifyingKey,
		CreatedAt:      time.Now(),
	}
	if err := conn.WithContext(dc.Ctx).Create(&inst).Error; err != nil {
		return nil, err
	}
	return &inst, nil
}

func (s *gormExecutionStore) CreateExecution(dc dbctx.Context, instance *domain.JobInstance, jobName, triggerID string, allParams domain.JobParameters) (*domain.JobExecution, error) {
	conn := dc.Resolve(s.db)
	snapshot, err := marshalParams(allParams)
	if err != nil {
		return nil, err
	}
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
	if err := conn.WithContext(dc.Ctx).Create(exec).Error; err != nil {
		return nil, err
	}
	return exec, nil
}

func (s *gormExecutionStore) UpdateExecution(ctx context.Context, exec *domain.JobExecution) error {
	if exec == nil || exec.ID == uuid.Nil {
		return nil
	}
	exec.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(exec).Error
}

func (s *gormExecutionStore) CreateStepExecution(ctx context.Context, executionID uuid.UUID, stepName string, ordinal int) (*domain.StepExecution, error) {
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
	if err := s.db.WithContext(ctx).Create(step).Error; err != nil {
		return nil, err
	}
	return step, nil
}

func (s *gormExecutionStore) UpdateStepExecution(ctx context.Context, step *domain.StepExecution) error {
	if step == nil || step.ID == uuid.Nil {
		return nil
	}
	step.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(step).Error
}

func (s *gormExecutionStore) FindExecution(ctx context.Context, id uuid.UUID) (*domain.JobExecution, error) {
	var exec domain.JobExecution
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (s *gormExecutionStore) FindRecentInstances(ctx context.Context, name string, page, size int) ([]*domain.JobInstance, error) {
	if size <= 0 {
		size = 100
	}
	if page < 0 {
		page = 0
	}
	var out []*domain.JobInstance
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormExecutionStore) ListExecutions(ctx context.Context, instanceID uuid.UUID) ([]*domain.JobExecution, error) {
	var out []*domain.JobExecution
	err := s.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *gormExecutionStore) FindExecutionByTriggerID(ctx context.Context, triggerID string) (*domain.JobExecution, error) {
	if triggerID == "" {
		return nil, nil
	}
	var exec domain.JobExecution
	err := s.db.WithContext(ctx).Where("trigger_id = ?", triggerID).First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exec, nil
}

func (s *gormExecutionStore) AbandonOrphaned(ctx context.Context) (int64, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&domain.JobExecution{}).
		Where("status IN ?", []domain.ExecutionStatus{domain.ExecutionStarting, domain.ExecutionStarted}).
		Updates(map[string]interface{}{
			"status":           domain.ExecutionAbandoned,
			"exit_code":        domain.ExitAbandoned,
			"exit_description": "orphaned at process restart",
			"end_time":         now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.log.Warn("abandoned orphaned executions at startup", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
