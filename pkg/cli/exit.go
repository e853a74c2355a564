package cli

import (
	"errors"
	"fmt"
)

// Exit codes of the truss binary.
const (
	ExitOK               = 0
	ExitValidationFailed = 1
	ExitUsage            = 2
	ExitIO               = 3
)

// ErrValidationFailed is returned when at least one file has an Error
// diagnostic after configuration overrides.
var ErrValidationFailed = errors.New("validation failed")

// ExitError carries the process exit code for an error returned by a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func ioError(err error) error {
	return &ExitError{Code: ExitIO, Err: err}
}

// ExitCode maps an error returned by a command to a process exit code.
// Errors that carry no code, such as cobra's flag parsing errors, are usage
// errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitUsage
}
