// Package coreerr collects the sentinel errors surfaced synchronously by
// the coordinator and registry, so callers can classify failures with
// errors.Is rather than string matching.
package coreerr

import "errors"

var (
	// ErrUnknownJob is returned when trigger() is called with a jobName
	// that has no registration in the job registry.
	ErrUnknownJob = errors.New("unknown job")

	// ErrParameterCoercion is returned when a caller-supplied parameter
	// cannot be coerced to the type declared in the job's parameterKeys.
	ErrParameterCoercion = errors.New("parameter coercion failed")

	// ErrLockTimeout is returned when the metadata lock is not acquired
	// within the configured queue timeout.
	ErrLockTimeout = errors.New("metadata lock timeout")

	// ErrStorageFailure is returned after the metadata-creation retry
	// budget is exhausted.
	ErrStorageFailure = errors.New("storage failure")

	// ErrDuplicateJob is returned by the registry when a job name is
	// registered twice.
	ErrDuplicateJob = errors.New("duplicate job registration")

	// ErrDuplicateStep is returned by the registry when a step name is
	// registered twice within the same job.
	ErrDuplicateStep = errors.New("duplicate step name")

	// ErrEmptySteps is returned when a job definition has no steps.
	ErrEmptySteps = errors.New("job definition has no steps")
)
