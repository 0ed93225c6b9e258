package repostate

import (
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
)

// ErrNoIdentity is returned when neither user name nor email is configured
// in any git config scope visible to the repository.
var ErrNoIdentity = errors.New("git identity (user.name/user.email) is not configured")

// Identity is the committer identity resolved from git configuration.
type Identity struct {
	Name  string
	Email string
}

// Inspector answers pre-flight questions about a git working tree without
// shelling out: dirty state, unmerged paths and configured identity.
type Inspector struct {
	path  string
	scope gitconfig.Scope
}

// InspectorOption customizes an Inspector.
type InspectorOption func(*Inspector)

// WithConfigScope limits identity resolution to the given config scope.
// The default merges local, global and system configuration like git does.
func WithConfigScope(scope gitconfig.Scope) InspectorOption {
	return func(i *Inspector) {
		i.scope = scope
	}
}

// NewInspector creates an inspector for the repository at path.
func NewInspector(path string, options ...InspectorOption) *Inspector {
	inspector := &Inspector{
		path:  path,
		scope: gitconfig.SystemScope,
	}

	for _, option := range options {
		option(inspector)
	}

	return inspector
}

// IsDirty reports whether the working tree has uncommitted or untracked changes.
func (i *Inspector) IsDirty() (bool, error) {
	status, err := i.status()
	if err != nil {
		return false, err
	}

	return !status.IsClean(), nil
}

// UnmergedPaths returns the paths carrying conflict markers from an
// unfinished merge, sorted for stable reporting.
func (i *Inspector) UnmergedPaths() ([]string, error) {
	status, err := i.status()
	if err != nil {
		return nil, err
	}

	var paths []string

	for path, fileStatus := range status {
		if isUnmerged(fileStatus) {
			paths = append(paths, path)
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// Identity resolves the configured user name and email.
// It fails with ErrNoIdentity when both are empty.
func (i *Inspector) Identity() (Identity, error) {
	repository, err := i.open()
	if err != nil {
		return Identity{}, err
	}

	cfg, err := repository.ConfigScoped(i.scope)
	if err != nil {
		return Identity{}, fmt.Errorf("read git config: %w", err)
	}

	identity := Identity{
		Name:  cfg.User.Name,
		Email: cfg.User.Email,
	}

	if identity.Name == "" && identity.Email == "" {
		return Identity{}, ErrNoIdentity
	}

	return identity, nil
}

// open resolves the repository, walking up to find .git like the git CLI does.
func (i *Inspector) open() (*gogit.Repository, error) {
	repository, err := gogit.PlainOpenWithOptions(i.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %q: %w", i.path, err)
	}

	return repository, nil
}

// status loads the working tree status.
func (i *Inspector) status() (gogit.Status, error) {
	repository, err := i.open()
	if err != nil {
		return nil, err
	}

	worktree, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("read worktree status: %w", err)
	}

	return status, nil
}

// isUnmerged reports whether a file status corresponds to a merge conflict,
// mirroring git's unmerged index states (UU, AA, DD and friends).
func isUnmerged(status *gogit.FileStatus) bool {
	if status == nil {
		return false
	}

	switch {
	case status.Staging == gogit.UpdatedButUnmerged || status.Worktree == gogit.UpdatedButUnmerged:
		return true
	case status.Staging == gogit.Added && status.Worktree == gogit.Added:
		return true
	case status.Staging == gogit.Deleted && status.Worktree == gogit.Deleted:
		return true
	default:
		return false
	}
}
