package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and default substitution.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	require.Error(t, Validate(nil))

	// Empty config receives defaults.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultLockTimeout, cfg.LockTimeout)
	require.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts)
	require.Equal(t, DefaultRemote, cfg.Remote)
	require.Equal(t, DefaultGitExecutable, cfg.GitExecutable)
	require.NotEmpty(t, cfg.LockDirectory)

	// Negative retry budget.
	cfg = &Config{MaxAttempts: -1}
	require.Error(t, Validate(cfg))

	// Negative delay.
	cfg = &Config{RetryDelay: -time.Second}
	require.Error(t, Validate(cfg))

	// Bad webhook.
	cfg = &Config{AlertWebhook: "not a url"}
	require.Error(t, Validate(cfg))

	// Good webhook.
	cfg = &Config{AlertWebhook: "https://hooks.example.com/release"}
	require.NoError(t, Validate(cfg))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		LockDirectory: filepath.Join(dir, "locks"),
		LockTimeout:   10 * time.Second,
		MaxAttempts:   5,
		Remote:        "upstream",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.LockDirectory, loaded.LockDirectory)
	require.Equal(t, cfg.LockTimeout, loaded.LockTimeout)
	require.Equal(t, 5, loaded.MaxAttempts)
	require.Equal(t, "upstream", loaded.Remote)

	// Unset fields come back as defaults.
	require.Equal(t, DefaultAttemptTimeout, loaded.AttemptTimeout)
}

// TestLoadMissingFileReturnsDefaults ensures a missing settings file is not fatal.
func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
