package cmd

import "fmt"

// Exit codes for flagrun CLI
const (
	// ExitSuccess indicates all tests passed and at least one flag was detected
	ExitSuccess = 0

	// ExitTestFailure indicates a failing or erroring test, or no flag detected
	ExitTestFailure = 1

	// ExitConfigError indicates the challenge tree could not be loaded
	ExitConfigError = 1

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries a process exit code out of a command. A nil err exits
// silently because the report already explains the outcome.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}
