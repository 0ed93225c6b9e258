package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestRunSuccess verifies classification and output capture for a zero exit.
func TestRunSuccess(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	attempt, err := runner.Run(context.Background(), []string{"sh", "-c", "echo hello"}, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, attempt.Status)
	require.Equal(t, 0, attempt.ExitCode)
	require.Contains(t, attempt.Output, "hello")
	require.False(t, attempt.FinishedAt.Before(attempt.StartedAt))
}

// TestRunFailure verifies non-zero exits carry their code and combined output.
func TestRunFailure(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	attempt, err := runner.Run(context.Background(), []string{"sh", "-c", "echo broken >&2; exit 3"}, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusFailure, attempt.Status)
	require.Equal(t, 3, attempt.ExitCode)
	require.Contains(t, attempt.Output, "broken")
}

// TestRunTimeout verifies the deadline kills the process and is reported
// distinctly from an ordinary failure.
func TestRunTimeout(t *testing.T) {
	t.Parallel()

	runner := NewRunner()
	started := time.Now()

	attempt, err := runner.Run(context.Background(), []string{"sh", "-c", "sleep 30"}, 100*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StatusTimeout, attempt.Status)
	require.Equal(t, -1, attempt.ExitCode)
	require.Less(t, time.Since(started), 10*time.Second)
}

// TestRunStartFailure verifies an unstartable command is a failure value, not a panic.
func TestRunStartFailure(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	attempt, err := runner.Run(context.Background(), []string{"definitely-not-a-real-binary"}, time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusFailure, attempt.Status)
	require.Equal(t, -1, attempt.ExitCode)
	require.NotEmpty(t, attempt.Output)
}

// TestRunEmptyCommand verifies the guard against a missing executable.
func TestRunEmptyCommand(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	_, err := runner.Run(context.Background(), nil, time.Second)
	require.Error(t, err)
}

// TestRunRespectsWorkDir verifies commands execute in the configured directory.
func TestRunRespectsWorkDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "probe.txt"), []byte("present"), 0o644))

	runner := NewRunner(WithWorkDir(dir))

	attempt, err := runner.Run(context.Background(), []string{"sh", "-c", "cat probe.txt"}, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, attempt.Status)
	require.Contains(t, attempt.Output, "present")
}
