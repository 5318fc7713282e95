package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobInstance is the equivalence class of executions sharing identifying
// parameters for a given job name. Unique on (name, identifying_key).
type JobInstance struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"index:idx_instance_name_key,unique,priority:1"`
	IdentifyingKey string    `gorm:"index:idx_instance_name_key,unique,priority:2"`
	CreatedAt      time.Time
}

func (JobInstance) TableName() string { return "job_instances" }

// JobExecution is a single attempt to run a job with specific parameters.
// ParametersSnapshot and ExecutionContext are stored as JSON columns
// (gorm.io/datatypes) rather than a wide, sparse table, since both hold
// heterogeneous per-run state whose shape varies by job.
type JobExecution struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InstanceID         uuid.UUID       `gorm:"type:uuid;index"`
	JobName            string          `gorm:"index"`
	TriggerID          string          `gorm:"uniqueIndex"`
	Status             ExecutionStatus `gorm:"index"`
	ExitCode           ExitCode
	ExitDescription    string
	StartTime          *time.Time
	EndTime            *time.Time
	ParametersSnapshot datatypes.JSON
	ExecutionContext   datatypes.JSON
	ReadCount          int64
	WriteCount         int64
	SkipCount          int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (JobExecution) TableName() string { return "job_executions" }

// StepExecution is the persisted record of one step's run within one
// execution. Step executions are appended in the order their steps run
// and their names match the job definition.
type StepExecution struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ExecutionID uuid.UUID `gorm:"type:uuid;index"`
	Name        string
	Status      StepStatus
	StartTime   *time.Time
	EndTime     *time.Time
	ReadCount   int64
	WriteCount  int64
	SkipCount   int64
	ExitCode    ExitCode
	Ordinal     int // position in the job's step list, for deterministic re-reads
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StepExecution) TableName() string { return "step_executions" }
