package cmd

import (
	"fmt"
)

// ExitCodeError carries the exit status the process should end with. The
// reason has already been reported to the user when it is returned.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError creates an ExitCodeError.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// exitError converts a finished operation's exit code to an error.
func exitError(code int) error {
	if code == 0 {
		return nil
	}
	if code < 0 {
		code = 1
	}
	return NewExitCodeError(code)
}
