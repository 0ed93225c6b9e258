package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"
)

// Store is the persistence boundary for named advisory locks.
// Implementations must provide atomic exclusive creation: TryCreate
// observed by concurrent processes succeeds for exactly one of them.
type Store interface {
	// TryCreate attempts exclusive creation of the lock entry for name,
	// recording ownerPid as the holder. It returns true iff this call
	// created the entry.
	TryCreate(name string, ownerPid int) (bool, error)
	// Read returns the pid recorded in the lock entry for name.
	Read(name string) (int, error)
	// Remove deletes the lock entry for name. Removing an absent entry is not an error.
	Remove(name string) error
	// OwnerAlive reports whether a process with the given pid exists on this host.
	OwnerAlive(ownerPid int) (bool, error)
}

var (
	// ErrNotHeld is returned by Read when no lock entry exists for the name.
	ErrNotHeld = errors.New("lock is not held")
	// ErrCorruptEntry is returned by Read when the lock entry does not contain a pid.
	ErrCorruptEntry = errors.New("lock entry is corrupt")
)

const (
	// lockFileSuffix is appended to the operation name to build the entry filename.
	lockFileSuffix = ".lock"

	// lockFilePermissions keeps entries readable by other cooperating processes.
	lockFilePermissions = 0o644

	// lockDirectoryPermissions is applied when the lock directory is first created.
	lockDirectoryPermissions = 0o755
)

// FileStore keeps one file per lock under a shared directory.
// The file's existence is the lock; its content is the owner pid in plain text.
type FileStore struct {
	// directory is the shared location all cooperating processes agree on.
	directory string
}

// Entry describes one lock file found in the store, for inspection tooling.
type Entry struct {
	// Name is the operation name the entry protects.
	Name string
	// OwnerPid is the recorded holder, or 0 when the entry is corrupt.
	OwnerPid int
	// ModifiedAt is when the entry file was last written.
	ModifiedAt time.Time
}

// NewFileStore creates a store rooted at the provided directory,
// creating the directory if needed.
func NewFileStore(directory string) (*FileStore, error) {
	if err := os.MkdirAll(directory, lockDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	return &FileStore{directory: directory}, nil
}

// Directory returns the directory lock entries are kept in.
func (s *FileStore) Directory() string {
	return s.directory
}

// TryCreate creates the lock file with O_EXCL so that exactly one of any
// number of concurrent callers wins. Losing is not an error.
func (s *FileStore) TryCreate(name string, ownerPid int) (bool, error) {
	file, err := os.OpenFile(s.path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFilePermissions)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}

		return false, fmt.Errorf("create lock entry: %w", err)
	}

	_, writeErr := fmt.Fprintf(file, "%d\n", ownerPid)

	if err = file.Close(); writeErr == nil {
		writeErr = err
	}

	if writeErr != nil {
		// A lock file without a readable owner would wedge every waiter,
		// so undo the creation before reporting.
		_ = os.Remove(s.path(name))

		return false, fmt.Errorf("write lock entry: %w", writeErr)
	}

	return true, nil
}

// Read returns the owner pid recorded for name.
func (s *FileStore) Read(name string) (int, error) {
	contents, err := os.ReadFile(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, ErrNotHeld
		}

		return 0, fmt.Errorf("read lock entry: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrCorruptEntry, strings.TrimSpace(string(contents)))
	}

	return pid, nil
}

// Remove deletes the lock entry. Absence is treated as success
// so that release stays idempotent.
func (s *FileStore) Remove(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock entry: %w", err)
	}

	return nil
}

// OwnerAlive reports whether a process with the given pid currently exists.
func (s *FileStore) OwnerAlive(ownerPid int) (bool, error) {
	process, err := ps.FindProcess(ownerPid)
	if err != nil {
		return false, fmt.Errorf("find process %d: %w", ownerPid, err)
	}

	return process != nil, nil
}

// List returns all lock entries currently present in the store.
func (s *FileStore) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.directory)
	if err != nil {
		return nil, fmt.Errorf("read lock directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), lockFileSuffix) {
			continue
		}

		name := strings.TrimSuffix(dirEntry.Name(), lockFileSuffix)

		entry := Entry{Name: name}

		if info, infoErr := dirEntry.Info(); infoErr == nil {
			entry.ModifiedAt = info.ModTime()
		}

		// Corrupt entries are listed with a zero pid so operators can see them.
		if pid, readErr := s.Read(name); readErr == nil {
			entry.OwnerPid = pid
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// path builds the lock file path for the given operation name.
func (s *FileStore) path(name string) string {
	return filepath.Join(s.directory, name+lockFileSuffix)
}
