package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/brightloop/batchcore/internal/coreerr"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromCoordinatorError classifies an error returned by the coordinator
// into the HTTP status and stable code the admin surface reports,
// falling back to a generic 500 for anything that isn't one of the
// coordinator's own sentinels.
func FromCoordinatorError(err error) *Error {
	switch {
	case errors.Is(err, coreerr.ErrUnknownJob):
		return New(http.StatusNotFound, "unknown_job", err)
	case errors.Is(err, coreerr.ErrParameterCoercion):
		return New(http.StatusBadRequest, "parameter_coercion", err)
	case errors.Is(err, coreerr.ErrLockTimeout):
		return New(http.StatusServiceUnavailable, "lock_timeout", err)
	case errors.Is(err, coreerr.ErrStorageFailure):
		return New(http.StatusInternalServerError, "storage_failure", err)
	default:
		return New(http.StatusInternalServerError, "internal", err)
	}
}
