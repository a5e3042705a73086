package task

import (
	"errors"
	"fmt"
)

// ErrUnknownOperation is returned when a name is not in the Table.
var ErrUnknownOperation = errors.New("unknown operation")

// ErrCancelled is the cause of a run whose step was cancelled while it ran,
// whatever exit code the step finished with.
var ErrCancelled = errors.New("cancelled")

// ExitError reports a step that finished with a non-zero exit code.
type ExitError struct {
	Task string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Task, e.Code)
}

// DispatchError reports a handler that failed to start its operation,
// either by returning an error or by panicking.
type DispatchError struct {
	Task string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Task, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
