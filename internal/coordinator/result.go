package coordinator

import "github.com/brightloop/batchcore/internal/domain"

// TriggerResult is the in-process shape of Trigger's response contract
// (success, executionId, jobName, triggerId, status, message). An HTTP
// surface that would serialize this is a separate concern; this type
// exists so any future adapter (HTTP, gRPC, CLI) has a ready-made shape
// to marshal rather than re-deriving one.
type TriggerResult struct {
	Success   bool
	Execution *domain.JobExecution
	JobName   string
	TriggerID string
	Status    domain.ExecutionStatus
	Message   string
}
