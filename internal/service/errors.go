package service

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a status precondition no longer holds,
	// e.g. two admins racing to execute or review the same record.
	ErrConflict = errors.New("status precondition failed")
	// ErrExecutionInProgress is returned when a batch for the session is
	// already running in this process.
	ErrExecutionInProgress = errors.New("execution already in progress")
)

// ValidationError rejects an operation before any write happens.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalid(msg string) error {
	return &ValidationError{Msg: msg}
}

// Actor identifies who triggered an operation, for the audit trail.
type Actor struct {
	ID   string
	Role string
}
