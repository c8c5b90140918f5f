package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all adapters should use.
var (
	// ErrFlowNotFound indicates no flow exists for the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrRunNotFound indicates no run record exists for the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrScheduleNotFound indicates no schedule exists for the given identifier.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrFlowAlreadyExists indicates a flow with the same identifier already exists.
	ErrFlowAlreadyExists = errors.New("flow already exists")
)

// StoreError wraps a storage failure with the operation and subject.
type StoreError struct {
	Op      string
	Subject string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Subject, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound) ||
		errors.Is(err, ErrRunNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
