package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by all git-atomic subcommands.
type Config struct {
	// LockDirectory is where advisory lock files are created.
	// Every process coordinating on the same working tree must use the same directory.
	LockDirectory string `yaml:"lock_dir"`
	// LockTimeout bounds how long an operation waits to acquire its lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// AttemptTimeout is the wall-clock deadline for a single git command attempt.
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// MaxAttempts is how many times a failed git command is tried before giving up.
	MaxAttempts int `yaml:"max_attempts"`
	// RetryDelay is the pause between consecutive attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Remote is the git remote used by push, pull and tag operations.
	Remote string `yaml:"remote"`
	// GitExecutable is the git binary to invoke. Resolved via PATH when relative.
	GitExecutable string `yaml:"git_executable"`
	// AlertWebhook is an optional URL receiving JSON alert payloads.
	// When empty, alerts go to the log only.
	AlertWebhook string `yaml:"alert_webhook"`
}

const (
	// DefaultConfigFilename is the default filename for git-atomic settings.
	DefaultConfigFilename = "git-atomic-settings.yaml"

	// DefaultLockTimeout bounds lock acquisition.
	DefaultLockTimeout = 300 * time.Second

	// DefaultAttemptTimeout bounds a single git command attempt.
	DefaultAttemptTimeout = 60 * time.Second

	// DefaultMaxAttempts is the retry budget for failed git commands.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultRemote is the git remote operations run against.
	DefaultRemote = "origin"

	// DefaultGitExecutable is the git binary name resolved via PATH.
	DefaultGitExecutable = "git"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// defaultLockDirectoryName is created under the system temp directory
	// when no lock directory is configured.
	defaultLockDirectoryName = "git-atomic-locks"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errMaxAttemptsTooLow is returned when the retry budget is below one.
	errMaxAttemptsTooLow = errors.New("max attempts must be at least 1")
	// errNegativeRetryDelay is returned when the inter-attempt delay is negative.
	errNegativeRetryDelay = errors.New("retry delay must not be negative")
)

// DefaultLockDirectory returns the lock directory used when none is configured.
func DefaultLockDirectory() string {
	return filepath.Join(os.TempDir(), defaultLockDirectoryName)
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		LockDirectory:  DefaultLockDirectory(),
		LockTimeout:    DefaultLockTimeout,
		AttemptTimeout: DefaultAttemptTimeout,
		MaxAttempts:    DefaultMaxAttempts,
		RetryDelay:     DefaultRetryDelay,
		Remote:         DefaultRemote,
		GitExecutable:  DefaultGitExecutable,
	}
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file is not an error: cron and CI invocations commonly run with
// defaults only, so the default configuration is returned instead.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.LockDirectory == "" {
		cfg.LockDirectory = DefaultLockDirectory()
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}

	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.MaxAttempts < 1 {
		return errMaxAttemptsTooLow
	}

	if cfg.RetryDelay < 0 {
		return errNegativeRetryDelay
	}

	if cfg.Remote == "" {
		cfg.Remote = DefaultRemote
	}

	if cfg.GitExecutable == "" {
		cfg.GitExecutable = DefaultGitExecutable
	}

	if cfg.AlertWebhook == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(cfg.AlertWebhook); err != nil {
		return fmt.Errorf("invalid alert webhook URI: %w", err)
	}

	return nil
}
