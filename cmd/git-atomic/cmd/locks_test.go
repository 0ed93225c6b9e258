package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/git-atomic/internal/lock"
)

// runLocksCommand executes the locks subcommand against a dedicated lock
// directory and returns its output. The root command is shared package
// state, so these tests run sequentially.
func runLocksCommand(t *testing.T, dir string, args ...string) string {
	t.Helper()

	var output bytes.Buffer

	rootCmd.SetOut(&output)
	rootCmd.SetErr(&output)
	rootCmd.SetArgs(append(args,
		"--lock-dir", dir,
		"--config", filepath.Join(dir, "absent.yaml"),
	))

	require.NoError(t, rootCmd.Execute())

	return output.String()
}

// TestLocksListEmpty verifies the empty-store message.
func TestLocksListEmpty(t *testing.T) {
	dir := t.TempDir()

	output := runLocksCommand(t, dir, "locks", "list")
	require.Contains(t, output, "no locks held")
}

// TestLocksListShowsOwners verifies entries appear with their pids.
func TestLocksListShowsOwners(t *testing.T) {
	dir := t.TempDir()

	store, err := lock.NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.TryCreate("push", os.Getpid())
	require.NoError(t, err)

	output := runLocksCommand(t, dir, "locks", "list")
	require.Contains(t, output, "push")
	require.Contains(t, output, strconv.Itoa(os.Getpid()))
}

// TestLocksClearRemovesOnlyStaleEntries verifies live locks survive a clear.
func TestLocksClearRemovesOnlyStaleEntries(t *testing.T) {
	dir := t.TempDir()

	store, err := lock.NewFileStore(dir)
	require.NoError(t, err)

	// One live holder (this process) and one dead one.
	_, err = store.TryCreate("push", os.Getpid())
	require.NoError(t, err)
	_, err = store.TryCreate("merge", 99999999)
	require.NoError(t, err)

	output := runLocksCommand(t, dir, "locks", "clear")
	require.Contains(t, output, `removed stale lock "merge"`)

	// The live lock is untouched, the stale one is gone.
	pid, err := store.Read("push")
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), pid)

	_, err = store.Read("merge")
	require.ErrorIs(t, err, lock.ErrNotHeld)
}
