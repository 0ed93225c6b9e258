package gitops

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/git-atomic/internal/alert"
	"github.com/oshokin/git-atomic/internal/config"
	"github.com/oshokin/git-atomic/internal/executor"
	"github.com/oshokin/git-atomic/internal/lock"
	"github.com/oshokin/git-atomic/internal/logger"
	"github.com/oshokin/git-atomic/internal/repostate"
)

// Operation categories. Locking is per category, not per ref: two tag
// creations serialize against each other, trading parallelism for safety.
const (
	OpPush     = "push"
	OpPull     = "pull"
	OpCheckout = "checkout"
	OpTag      = "tag"
	OpMerge    = "merge"
)

// Operations returns the fixed vocabulary of lock categories.
func Operations() []string {
	return []string{OpPush, OpPull, OpCheckout, OpTag, OpMerge}
}

// CommandRunner executes one command under a retry policy.
type CommandRunner interface {
	RunWithRetry(ctx context.Context, argv []string, policy executor.Policy) (executor.Attempt, error)
}

// RepositoryInspector answers pre-flight questions about the working tree.
type RepositoryInspector interface {
	IsDirty() (bool, error)
	UnmergedPaths() ([]string, error)
	Identity() (repostate.Identity, error)
}

// Service composes locking, retries and validation into atomic git
// operations. Every mutating command runs while holding the lock for its
// category, and the lock is released on every exit path.
type Service struct {
	cfg       *config.Config
	locks     *lock.Manager
	runner    CommandRunner
	inspector RepositoryInspector
	notifier  alert.Notifier
}

// NewService wires the operation layer from its collaborators.
func NewService(
	cfg *config.Config,
	locks *lock.Manager,
	runner CommandRunner,
	inspector RepositoryInspector,
	notifier alert.Notifier,
) *Service {
	return &Service{
		cfg:       cfg,
		locks:     locks,
		runner:    runner,
		inspector: inspector,
		notifier:  notifier,
	}
}

// ReleaseHeldLocks drops any locks still held, for shutdown paths.
func (s *Service) ReleaseHeldLocks() error {
	return s.locks.ReleaseAll()
}

// Push pushes the branch to the configured remote under the push lock.
func (s *Service) Push(ctx context.Context, branch string) *Result {
	ctx = logger.WithName(ctx, OpPush)

	if err := ValidateBranchName(branch); err != nil {
		return s.validationFailed(ctx, OpPush, err)
	}

	return s.execute(ctx, OpPush, s.git("push", s.cfg.Remote, branch))
}

// Pull fetches and integrates the branch from the configured remote.
func (s *Service) Pull(ctx context.Context, branch string) *Result {
	ctx = logger.WithName(ctx, OpPull)

	if err := ValidateBranchName(branch); err != nil {
		return s.validationFailed(ctx, OpPull, err)
	}

	if err := s.preflight(ctx); err != nil {
		return s.validationFailed(ctx, OpPull, err)
	}

	return s.execute(ctx, OpPull, s.git("pull", s.cfg.Remote, branch))
}

// Checkout switches the working tree to the branch.
func (s *Service) Checkout(ctx context.Context, branch string) *Result {
	ctx = logger.WithName(ctx, OpCheckout)

	if err := ValidateBranchName(branch); err != nil {
		return s.validationFailed(ctx, OpCheckout, err)
	}

	return s.execute(ctx, OpCheckout, s.git("checkout", branch))
}

// Merge merges the branch into the current one and checks for conflicts
// afterwards. A conflicted merge is a distinct outcome routed to humans,
// never retried.
func (s *Service) Merge(ctx context.Context, branch string) *Result {
	ctx = logger.WithName(ctx, OpMerge)

	if err := ValidateBranchName(branch); err != nil {
		return s.validationFailed(ctx, OpMerge, err)
	}

	if err := s.preflight(ctx); err != nil {
		return s.validationFailed(ctx, OpMerge, err)
	}

	result := s.execute(ctx, OpMerge, s.git("merge", "--no-edit", branch))

	// Conflicts can only exist if the merge command actually ran.
	if result.Outcome == OutcomeLockTimeout || result.Outcome == OutcomeAborted {
		return result
	}

	conflictPaths, err := s.inspector.UnmergedPaths()
	if err != nil {
		logger.WarnKV(ctx, "Conflict check failed", "error", err)

		return result
	}

	if len(conflictPaths) == 0 {
		return result
	}

	result.Outcome = OutcomeConflict
	result.ConflictPaths = conflictPaths
	result.Err = fmt.Errorf("merge of %q left %d unmerged paths", branch, len(conflictPaths))

	if notifyErr := s.notifier.Notify(ctx, alert.SeverityCritical,
		"Merge conflict",
		fmt.Sprintf("merging %q requires manual resolution", branch),
		"operation", OpMerge,
		"branch", branch,
		"unmerged_paths", len(conflictPaths),
	); notifyErr != nil {
		logger.WarnKV(ctx, "Alert delivery failed", "error", notifyErr)
	}

	return result
}

// Tag creates an annotated tag and then pushes it to the remote. The two
// phases are independent atomic operations, each under its own lock.
func (s *Service) Tag(ctx context.Context, name, message string) *Result {
	ctx = logger.WithName(ctx, OpTag)

	if err := ValidateTagName(name); err != nil {
		return s.validationFailed(ctx, OpTag, err)
	}

	if message == "" {
		message = "Release " + name
	}

	result := s.execute(ctx, OpTag, s.git("tag", "-a", name, "-m", message))
	if !result.Succeeded() {
		return result
	}

	return s.execute(ctx, OpPush, s.git("push", s.cfg.Remote, name))
}

// preflight warns about a dirty working tree and fails when no git identity
// is configured. Both checks run before any lock is taken.
func (s *Service) preflight(ctx context.Context) error {
	dirty, err := s.inspector.IsDirty()
	if err != nil {
		return err
	}

	if dirty {
		logger.Warn(ctx, "Working tree has uncommitted changes")
	}

	if _, err := s.inspector.Identity(); err != nil {
		return err
	}

	return nil
}

// execute runs argv under the operation's lock with the configured retry
// policy. The lock is released on every path out of this function.
func (s *Service) execute(ctx context.Context, operation string, argv []string) *Result {
	result := &Result{Operation: operation}

	_, err := s.locks.Acquire(ctx, operation, s.cfg.LockTimeout)

	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		result.Outcome = OutcomeLockTimeout
		result.Err = err

		logger.ErrorKV(ctx, "Lock acquisition timed out", "operation", operation, "timeout", s.cfg.LockTimeout)

		return result
	case err != nil:
		result.Outcome = OutcomeAborted
		result.Err = err

		return result
	}

	defer func() {
		if releaseErr := s.locks.Release(operation); releaseErr != nil {
			logger.ErrorKV(ctx, "Lock release failed", "operation", operation, "error", releaseErr)
		}
	}()

	attempt, err := s.runner.RunWithRetry(ctx, argv, executor.Policy{
		MaxAttempts:    s.cfg.MaxAttempts,
		Delay:          s.cfg.RetryDelay,
		AttemptTimeout: s.cfg.AttemptTimeout,
	})

	result.LastAttempt = attempt

	if err != nil {
		result.Outcome = OutcomeAborted
		result.Err = err

		return result
	}

	if attempt.Status == executor.StatusSuccess {
		result.Outcome = OutcomeSucceeded

		logger.InfoKV(ctx, "Operation succeeded", "operation", operation)

		return result
	}

	result.Outcome = OutcomeRetriesExhausted
	result.Err = fmt.Errorf("command failed after %d attempts, last status %s (exit code %d)",
		s.cfg.MaxAttempts, attempt.Status, attempt.ExitCode)

	logger.ErrorKV(ctx, "Operation failed",
		"operation", operation,
		"status", attempt.Status.String(),
		"exit_code", attempt.ExitCode,
		"output", attempt.Output)

	return result
}

// validationFailed builds the result for inputs rejected before locking.
func (s *Service) validationFailed(ctx context.Context, operation string, err error) *Result {
	logger.ErrorKV(ctx, "Validation failed", "operation", operation, "error", err)

	return &Result{
		Operation: operation,
		Outcome:   OutcomeValidationFailed,
		Err:       err,
	}
}

// git prepends the configured git executable to the argument list.
func (s *Service) git(args ...string) []string {
	return append([]string{s.cfg.GitExecutable}, args...)
}
