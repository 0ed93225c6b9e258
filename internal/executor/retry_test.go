package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingScript returns argv for a shell command that appends a line to
// counterPath on every invocation and then runs body.
func countingScript(counterPath, body string) []string {
	return []string{"sh", "-c", fmt.Sprintf("echo run >> %q; %s", counterPath, body)}
}

// invocations returns how many times the counting script ran.
func invocations(t *testing.T, counterPath string) int {
	t.Helper()

	contents, err := os.ReadFile(counterPath)
	if os.IsNotExist(err) {
		return 0
	}

	require.NoError(t, err)

	count := 0
	for _, b := range contents {
		if b == '\n' {
			count++
		}
	}

	return count
}

// TestRunWithRetryExhaustsExactBudget verifies an always-failing command is
// tried exactly MaxAttempts times and the final classification is returned.
func TestRunWithRetryExhaustsExactBudget(t *testing.T) {
	t.Parallel()

	counter := filepath.Join(t.TempDir(), "count")
	runner := NewRunner()

	policy := Policy{
		MaxAttempts:    3,
		Delay:          time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	}

	attempt, err := runner.RunWithRetry(context.Background(), countingScript(counter, "exit 7"), policy)
	require.NoError(t, err)
	require.Equal(t, StatusFailure, attempt.Status)
	require.Equal(t, 7, attempt.ExitCode)
	require.Equal(t, 3, invocations(t, counter))
}

// TestRunWithRetryStopsOnFirstSuccess verifies no further attempts happen once one succeeds.
func TestRunWithRetryStopsOnFirstSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	counter := filepath.Join(dir, "count")
	marker := filepath.Join(dir, "marker")
	runner := NewRunner()

	// Fails on the first run, succeeds afterwards.
	body := fmt.Sprintf("if [ -f %q ]; then exit 0; else touch %q; exit 1; fi", marker, marker)

	policy := Policy{
		MaxAttempts:    5,
		Delay:          time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	}

	attempt, err := runner.RunWithRetry(context.Background(), countingScript(counter, body), policy)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, attempt.Status)
	require.Equal(t, 2, invocations(t, counter))
}

// TestRunWithRetrySingleAttempt verifies MaxAttempts of one still executes exactly once.
func TestRunWithRetrySingleAttempt(t *testing.T) {
	t.Parallel()

	counter := filepath.Join(t.TempDir(), "count")
	runner := NewRunner()

	policy := Policy{
		MaxAttempts:    1,
		Delay:          time.Millisecond,
		AttemptTimeout: 5 * time.Second,
	}

	attempt, err := runner.RunWithRetry(context.Background(), countingScript(counter, "exit 1"), policy)
	require.NoError(t, err)
	require.Equal(t, StatusFailure, attempt.Status)
	require.Equal(t, 1, invocations(t, counter))
}

// TestRunWithRetryTimeoutClassification verifies a hanging command surfaces as a timeout.
func TestRunWithRetryTimeoutClassification(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	policy := Policy{
		MaxAttempts:    2,
		Delay:          time.Millisecond,
		AttemptTimeout: 50 * time.Millisecond,
	}

	attempt, err := runner.RunWithRetry(context.Background(), []string{"sh", "-c", "sleep 30"}, policy)
	require.NoError(t, err)
	require.Equal(t, StatusTimeout, attempt.Status)
}

// TestRunWithRetryCancellation verifies cancellation aborts the inter-attempt delay.
func TestRunWithRetryCancellation(t *testing.T) {
	t.Parallel()

	runner := NewRunner()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	policy := Policy{
		MaxAttempts:    100,
		Delay:          10 * time.Second,
		AttemptTimeout: time.Second,
	}

	started := time.Now()

	_, err := runner.RunWithRetry(ctx, []string{"sh", "-c", "exit 1"}, policy)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(started), 5*time.Second)
}
