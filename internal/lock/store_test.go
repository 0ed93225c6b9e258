package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// deadPid is above the default Linux pid_max (4194304), so no live process can own it.
const deadPid = 99999999

// TestTryCreateIsExclusive verifies that only the first creation attempt wins.
func TestTryCreateIsExclusive(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	created, err := store.TryCreate("push", os.Getpid())
	require.NoError(t, err)
	require.True(t, created)

	// Second attempt must observe the existing entry.
	created, err = store.TryCreate("push", os.Getpid())
	require.NoError(t, err)
	require.False(t, created)

	// A different name is an independent lock.
	created, err = store.TryCreate("merge", os.Getpid())
	require.NoError(t, err)
	require.True(t, created)
}

// TestReadReturnsOwnerPid verifies the entry content roundtrip.
func TestReadReturnsOwnerPid(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	created, err := store.TryCreate("tag", 4242)
	require.NoError(t, err)
	require.True(t, created)

	pid, err := store.Read("tag")
	require.NoError(t, err)
	require.Equal(t, 4242, pid)
}

// TestReadAbsentAndCorrupt verifies the sentinel errors for missing and garbage entries.
func TestReadAbsentAndCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = store.Read("checkout")
	require.ErrorIs(t, err, ErrNotHeld)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkout.lock"), []byte("not-a-pid"), 0o644))

	_, err = store.Read("checkout")
	require.ErrorIs(t, err, ErrCorruptEntry)
}

// TestRemoveIsIdempotent verifies removing an absent entry is not an error.
func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Remove("pull"))

	created, err := store.TryCreate("pull", os.Getpid())
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, store.Remove("pull"))
	require.NoError(t, store.Remove("pull"))

	_, err = store.Read("pull")
	require.ErrorIs(t, err, ErrNotHeld)
}

// TestOwnerAlive verifies liveness detection for our own pid and an impossible one.
func TestOwnerAlive(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	alive, err := store.OwnerAlive(os.Getpid())
	require.NoError(t, err)
	require.True(t, alive)

	alive, err = store.OwnerAlive(deadPid)
	require.NoError(t, err)
	require.False(t, alive)
}

// TestList verifies that lock entries are enumerated with owner pids.
func TestList(t *testing.T) {
	t.Parallel()

	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	entries, err := store.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = store.TryCreate("push", 1001)
	require.NoError(t, err)
	_, err = store.TryCreate("merge", 1002)
	require.NoError(t, err)

	entries, err = store.List()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := make(map[string]Entry, len(entries))
	for _, entry := range entries {
		byName[entry.Name] = entry
	}

	require.Equal(t, 1001, byName["push"].OwnerPid)
	require.Equal(t, 1002, byName["merge"].OwnerPid)
}
