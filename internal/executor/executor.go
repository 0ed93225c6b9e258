package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Status classifies the outcome of one command attempt.
type Status int

const (
	// StatusSuccess means the command exited with code zero.
	StatusSuccess Status = iota
	// StatusTimeout means the command was killed after exceeding its deadline.
	StatusTimeout
	// StatusFailure means the command exited non-zero or could not be started.
	StatusFailure
)

// String returns a human-readable status name for logs.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimeout:
		return "timeout"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Attempt is the record of a single command execution.
// Attempts are ephemeral: they live only for the duration of a retry loop.
type Attempt struct {
	// Command is the argv that was executed.
	Command []string
	// StartedAt and FinishedAt bound the execution.
	StartedAt  time.Time
	FinishedAt time.Time
	// Status classifies the outcome.
	Status Status
	// ExitCode is the process exit code, or -1 when none is available.
	ExitCode int
	// Output is the combined stdout and stderr, captured for diagnostics only.
	Output string
}

// Duration returns how long the attempt ran.
func (a Attempt) Duration() time.Duration {
	return a.FinishedAt.Sub(a.StartedAt)
}

// errEmptyCommand is returned when Run is invoked without an executable.
var errEmptyCommand = errors.New("command is empty")

// waitDelay is how long Wait may linger after the deadline kill before
// abandoning the command's I/O pipes.
const waitDelay = 5 * time.Second

// Runner executes external commands under a hard wall-clock deadline and
// classifies the outcome as a value. Command output never influences control
// flow; it is captured solely for logging.
type Runner struct {
	// workDir is the working directory commands run in. Empty means inherit.
	workDir string
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithWorkDir makes commands run in the given directory.
func WithWorkDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.workDir = dir
	}
}

// NewRunner creates a command runner.
func NewRunner(options ...RunnerOption) *Runner {
	r := new(Runner)

	for _, option := range options {
		option(r)
	}

	return r
}

// Run executes argv with the given deadline. Exceeding the deadline kills the
// process and yields StatusTimeout; any non-zero exit (including a command
// that could not be started) yields StatusFailure. The returned error is
// non-nil only for an empty argv or for cancellation of the caller's context.
func (r *Runner) Run(ctx context.Context, argv []string, timeout time.Duration) (Attempt, error) {
	if len(argv) == 0 {
		return Attempt{ExitCode: -1, Status: StatusFailure}, errEmptyCommand
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	command.Dir = r.workDir
	command.WaitDelay = waitDelay

	var output bytes.Buffer

	command.Stdout = &output
	command.Stderr = &output

	attempt := Attempt{
		Command:   argv,
		StartedAt: time.Now(),
	}

	runErr := command.Run()

	attempt.FinishedAt = time.Now()
	attempt.Output = output.String()

	switch {
	case runErr == nil:
		attempt.Status = StatusSuccess
	case ctx.Err() != nil:
		// The caller is shutting down; don't dress cancellation up as a command failure.
		attempt.Status = StatusFailure
		attempt.ExitCode = -1

		return attempt, fmt.Errorf("run %s: %w", argv[0], ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		attempt.Status = StatusTimeout
		attempt.ExitCode = -1
	default:
		attempt.Status = StatusFailure
		attempt.ExitCode = -1

		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			attempt.ExitCode = exitErr.ExitCode()
		} else if attempt.Output == "" {
			// Start failures produce no output; keep the reason for diagnostics.
			attempt.Output = runErr.Error()
		}
	}

	return attempt, nil
}

// CommandLine renders argv for logs.
func CommandLine(argv []string) string {
	return strings.Join(argv, " ")
}
