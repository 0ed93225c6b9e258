package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oshokin/git-atomic/internal/logger"
)

// ErrLockTimeout is returned when a lock could not be acquired within the caller's budget.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// DefaultPollInterval is how long Acquire sleeps between attempts
// while another live process holds the lock.
const DefaultPollInterval = time.Second

// Token represents exclusive ownership of one named resource.
type Token struct {
	// Name is the operation category the token protects.
	Name string
	// OwnerPid is the pid recorded in the lock entry.
	OwnerPid int
	// AcquiredAt is when the entry was created.
	AcquiredAt time.Time
}

// Manager turns the store's single-shot TryCreate into a blocking,
// timeout-bounded acquire with stale-lock recovery. Each Manager owns a
// registry of the locks it currently holds, so independent instances can
// coexist in one process (and in tests).
type Manager struct {
	store        Store
	selfPid      int
	pollInterval time.Duration

	// mu guards held.
	mu   sync.Mutex
	held map[string]Token
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithPollInterval overrides the sleep between acquisition attempts.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// NewManager creates a lock manager claiming locks on behalf of the current process.
func NewManager(store Store, options ...ManagerOption) *Manager {
	m := &Manager{
		store:        store,
		selfPid:      os.Getpid(),
		pollInterval: DefaultPollInterval,
		held:         make(map[string]Token),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Acquire claims the named lock, polling until it succeeds, the timeout
// elapses (ErrLockTimeout) or the context is canceled. A lock whose recorded
// owner is no longer alive is reclaimed immediately without consuming a poll
// interval; a live owner is never broken regardless of the entry's age.
func (m *Manager) Acquire(ctx context.Context, name string, timeout time.Duration) (Token, error) {
	deadline := time.Now().Add(timeout)

	for {
		if err := ctx.Err(); err != nil {
			return Token{}, fmt.Errorf("acquire %q: %w", name, err)
		}

		created, err := m.store.TryCreate(name, m.selfPid)
		if err != nil {
			return Token{}, fmt.Errorf("acquire %q: %w", name, err)
		}

		if created {
			token := Token{
				Name:       name,
				OwnerPid:   m.selfPid,
				AcquiredAt: time.Now(),
			}

			m.mu.Lock()
			m.held[name] = token
			m.mu.Unlock()

			logger.DebugKV(ctx, "Lock acquired", "name", name, "pid", m.selfPid)

			return token, nil
		}

		if reclaimed, reclaimErr := m.reclaimIfStale(ctx, name); reclaimErr != nil {
			return Token{}, fmt.Errorf("acquire %q: %w", name, reclaimErr)
		} else if reclaimed {
			// The resource is actually free, try again right away.
			continue
		}

		if !time.Now().Before(deadline) {
			return Token{}, fmt.Errorf("acquire %q: %w", name, ErrLockTimeout)
		}

		if err := m.sleep(ctx); err != nil {
			return Token{}, fmt.Errorf("acquire %q: %w", name, err)
		}
	}
}

// Release drops the named lock unconditionally.
// It must be called exactly once per successful Acquire, on every exit path.
func (m *Manager) Release(name string) error {
	m.mu.Lock()
	delete(m.held, name)
	m.mu.Unlock()

	if err := m.store.Remove(name); err != nil {
		return fmt.Errorf("release %q: %w", name, err)
	}

	return nil
}

// ReleaseAll drops every lock this manager still holds.
// It is wired to the process shutdown path so an interrupt never leaves
// entries behind for other processes to wait on.
func (m *Manager) ReleaseAll() error {
	m.mu.Lock()
	names := make([]string, 0, len(m.held))

	for name := range m.held {
		names = append(names, name)
	}
	m.mu.Unlock()

	var errs []error

	for _, name := range names {
		if err := m.Release(name); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Held returns a snapshot of the locks this manager currently holds.
func (m *Manager) Held() []Token {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens := make([]Token, 0, len(m.held))
	for _, token := range m.held {
		tokens = append(tokens, token)
	}

	return tokens
}

// reclaimIfStale removes the named lock entry when its recorded owner is not
// alive, reporting whether the caller should retry immediately. Liveness is
// the only criterion: entry age never justifies breaking a lock.
func (m *Manager) reclaimIfStale(ctx context.Context, name string) (bool, error) {
	owner, err := m.store.Read(name)

	switch {
	case errors.Is(err, ErrNotHeld):
		// The holder released between our create attempt and this read.
		return true, nil
	case errors.Is(err, ErrCorruptEntry):
		logger.WarnKV(ctx, "Removing corrupt lock entry", "name", name, "error", err)

		return true, m.store.Remove(name)
	case err != nil:
		return false, err
	}

	alive, err := m.store.OwnerAlive(owner)
	if err != nil {
		return false, err
	}

	if alive {
		return false, nil
	}

	logger.WarnKV(ctx, "Reclaiming stale lock", "name", name, "dead_owner_pid", owner)

	return true, m.store.Remove(name)
}

// sleep pauses for one poll interval, waking early on context cancellation.
func (m *Manager) sleep(ctx context.Context) error {
	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
