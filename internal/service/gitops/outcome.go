package gitops

import (
	"fmt"

	"github.com/oshokin/git-atomic/internal/executor"
)

// Outcome is the terminal state of one atomic operation.
// Each maps to a distinct process exit code so CI pipelines can branch on it.
type Outcome int

const (
	// OutcomeSucceeded means the operation completed.
	OutcomeSucceeded Outcome = iota
	// OutcomeValidationFailed means inputs or repository state were rejected
	// before any lock was taken or command executed.
	OutcomeValidationFailed
	// OutcomeLockTimeout means the operation's lock could not be acquired in time.
	// The operation never proceeds unprotected.
	OutcomeLockTimeout
	// OutcomeRetriesExhausted means every command attempt failed or timed out.
	OutcomeRetriesExhausted
	// OutcomeConflict means a merge left unmerged paths needing human resolution.
	OutcomeConflict
	// OutcomeAborted means the operation was cut short by cancellation or an
	// infrastructure fault before a terminal classification was reached.
	OutcomeAborted
)

// String returns the outcome name used in logs and CLI output.
func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeValidationFailed:
		return "validation_failed"
	case OutcomeLockTimeout:
		return "lock_timeout"
	case OutcomeRetriesExhausted:
		return "retries_exhausted"
	case OutcomeConflict:
		return "conflict"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ExitCode maps the outcome to the process exit code surfaced to callers.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSucceeded:
		return 0
	case OutcomeValidationFailed:
		return 2
	case OutcomeLockTimeout:
		return 3
	case OutcomeRetriesExhausted:
		return 4
	case OutcomeConflict:
		return 5
	default:
		return 1
	}
}

// Result reports how one atomic operation ended.
type Result struct {
	// Operation is the lock category the operation ran under.
	Operation string
	// Outcome is the terminal classification.
	Outcome Outcome
	// Err carries the cause for non-success outcomes.
	Err error
	// LastAttempt is the final command attempt, when one was made.
	LastAttempt executor.Attempt
	// ConflictPaths lists unmerged paths for OutcomeConflict.
	ConflictPaths []string
}

// Succeeded reports whether the operation completed.
func (r *Result) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// AsError adapts the result for error-based propagation: nil on success,
// an *OutcomeError otherwise.
func (r *Result) AsError() error {
	if r.Succeeded() {
		return nil
	}

	return &OutcomeError{Result: r}
}

// OutcomeError carries a non-success result through error returns so the CLI
// can map it back to a distinct exit code.
type OutcomeError struct {
	Result *Result
}

// Error describes the failed operation and its classification.
func (e *OutcomeError) Error() string {
	if e.Result.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Result.Operation, e.Result.Outcome, e.Result.Err)
	}

	return fmt.Sprintf("%s %s", e.Result.Operation, e.Result.Outcome)
}

// Unwrap exposes the underlying cause.
func (e *OutcomeError) Unwrap() error {
	return e.Result.Err
}
