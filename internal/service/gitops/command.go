package gitops

import (
	"context"

	"github.com/oshokin/git-atomic/internal/alert"
	"github.com/oshokin/git-atomic/internal/config"
	"github.com/oshokin/git-atomic/internal/executor"
	"github.com/oshokin/git-atomic/internal/lock"
	"github.com/oshokin/git-atomic/internal/logger"
	"github.com/oshokin/git-atomic/internal/repostate"
)

// Options are inputs accepted by the operation layer's CLI entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// WorkDir is the repository working tree. Empty means the current directory.
	WorkDir string
	// Remote overrides the configured git remote when non-empty.
	Remote string
	// LockDirectory overrides the configured lock directory when non-empty.
	LockDirectory string
}

// New assembles a Service from configuration and defaults, wiring the
// file-backed lock store, the command runner and the alert sink.
func New(ctx context.Context, opts *Options) (*Service, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Remote != "" {
		cfg.Remote = opts.Remote
	}

	if opts.LockDirectory != "" {
		cfg.LockDirectory = opts.LockDirectory
	}

	store, err := lock.NewFileStore(cfg.LockDirectory)
	if err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	var notifier alert.Notifier = alert.NewLogNotifier()
	if cfg.AlertWebhook != "" {
		notifier = alert.NewWebhookNotifier(cfg.AlertWebhook)
	}

	logger.DebugKV(ctx, "Operation layer assembled",
		"lock_dir", cfg.LockDirectory,
		"remote", cfg.Remote,
		"max_attempts", cfg.MaxAttempts)

	return NewService(
		cfg,
		lock.NewManager(store),
		executor.NewRunner(executor.WithWorkDir(opts.WorkDir)),
		repostate.NewInspector(workDir),
		notifier,
	), nil
}
