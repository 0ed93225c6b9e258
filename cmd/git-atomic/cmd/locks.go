package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/git-atomic/internal/config"
	"github.com/oshokin/git-atomic/internal/lock"
)

var (
	// locksCmd groups lock inspection subcommands.
	locksCmd = &cobra.Command{
		Use:   "locks",
		Short: "Inspect and clean lock entries",
	}

	// locksListCmd prints every lock entry with owner liveness.
	locksListCmd = &cobra.Command{
		Use:   "list",
		Short: "List lock entries with their owners",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLockStore()
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(entries) == 0 {
				_, _ = fmt.Fprintln(out, "no locks held")

				return nil
			}

			_, _ = fmt.Fprintf(out, "%-12s %-10s %-6s %s\n", "NAME", "PID", "ALIVE", "AGE")

			for _, entry := range entries {
				alive := false
				if entry.OwnerPid > 0 {
					alive, _ = store.OwnerAlive(entry.OwnerPid)
				}

				age := "?"
				if !entry.ModifiedAt.IsZero() {
					age = time.Since(entry.ModifiedAt).Truncate(time.Second).String()
				}

				_, _ = fmt.Fprintf(out, "%-12s %-10d %-6t %s\n", entry.Name, entry.OwnerPid, alive, age)
			}

			return nil
		},
	}

	// locksClearCmd removes entries whose owners are gone. Live locks are never broken.
	locksClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Remove lock entries left behind by dead processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openLockStore()
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			removed := 0

			for _, entry := range entries {
				if entry.OwnerPid > 0 {
					alive, aliveErr := store.OwnerAlive(entry.OwnerPid)
					if aliveErr != nil {
						return aliveErr
					}

					if alive {
						continue
					}
				}

				if err := store.Remove(entry.Name); err != nil {
					return err
				}

				removed++

				_, _ = fmt.Fprintf(out, "removed stale lock %q (pid %d)\n", entry.Name, entry.OwnerPid)
			}

			if removed == 0 {
				_, _ = fmt.Fprintln(out, "no stale locks found")
			}

			return nil
		},
	}
)

// openLockStore resolves the lock directory from flags and configuration.
func openLockStore() (*lock.FileStore, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	directory := cfg.LockDirectory
	if lockDirOverride != "" {
		directory = lockDirOverride
	}

	return lock.NewFileStore(directory)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	locksCmd.AddCommand(locksListCmd, locksClearCmd)
	rootCmd.AddCommand(locksCmd)
}
