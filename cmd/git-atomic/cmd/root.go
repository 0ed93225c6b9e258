package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/git-atomic/internal/config"
	"github.com/oshokin/git-atomic/internal/logger"
	"github.com/oshokin/git-atomic/internal/service/gitops"
	"github.com/oshokin/git-atomic/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// workDir is the git working tree operations run in.
	workDir string
	// remoteOverride replaces the configured git remote when set.
	remoteOverride string
	// lockDirOverride replaces the configured lock directory when set.
	lockDirOverride string
	// logLevel adjusts logging verbosity for this invocation.
	logLevel string

	// rootCmd represents the base command for lock-protected git operations.
	rootCmd = &cobra.Command{
		Use:   "git-atomic",
		Short: "Run git operations serialized across processes",
		Long: `git-atomic wraps mutating git operations (push, pull, checkout, tag, merge)
in cooperative cross-process locks so that CI runners, cron jobs and developer
shells sharing one working tree never interleave them.

Each operation validates its inputs, acquires a per-category lock, runs the
git command with bounded retries and always releases the lock. Locks left
behind by crashed processes are reclaimed automatically. Outcomes map to
distinct exit codes: 0 success, 2 validation failed, 3 lock timeout,
4 retries exhausted, 5 merge conflict.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
	}
)

// Execute runs the git-atomic CLI and exits with the outcome's code on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		var outcomeErr *gitops.OutcomeError
		if errors.As(err, &outcomeErr) {
			os.Exit(outcomeErr.Result.Outcome.ExitCode())
		}

		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&workDir, "repo", "r", "", "path to the git working tree (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&remoteOverride, "remote", "", "git remote to use instead of the configured one")
	rootCmd.PersistentFlags().StringVar(&lockDirOverride, "lock-dir", "", "lock directory to use instead of the configured one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error or fatal")
}

// runOperation is the shared scaffolding for every atomic operation command:
// signal-aware context, service assembly, guaranteed release of held locks
// and outcome-to-error adaptation.
func runOperation(run func(ctx context.Context, service *gitops.Service) *gitops.Result) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ctx = logger.WithName(ctx, "git-atomic")

	service, err := gitops.New(ctx, &gitops.Options{
		ConfigPath:    configPath,
		WorkDir:       workDir,
		Remote:        remoteOverride,
		LockDirectory: lockDirOverride,
	})
	if err != nil {
		return err
	}

	// An interrupt mid-operation must never leave lock entries behind.
	defer func() {
		if releaseErr := service.ReleaseHeldLocks(); releaseErr != nil {
			logger.ErrorKV(ctx, "Releasing held locks failed", "error", releaseErr)
		}
	}()

	return run(ctx, service).AsError()
}
