package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/git-atomic/internal/service/gitops"
)

var (
	// tagMessage is the annotation attached to created tags.
	tagMessage string

	// pushCmd pushes a branch under the push lock.
	pushCmd = &cobra.Command{
		Use:   "push <branch>",
		Short: "Push a branch to the remote under the push lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOperation(func(ctx context.Context, service *gitops.Service) *gitops.Result {
				return service.Push(ctx, args[0])
			})
		},
	}

	// pullCmd pulls a branch under the pull lock.
	pullCmd = &cobra.Command{
		Use:   "pull <branch>",
		Short: "Pull a branch from the remote under the pull lock",
		Long: `Pulls the branch from the configured remote while holding the pull lock.

Warns when the working tree has uncommitted changes and refuses to run when
no git identity (user.name/user.email) is configured.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOperation(func(ctx context.Context, service *gitops.Service) *gitops.Result {
				return service.Pull(ctx, args[0])
			})
		},
	}

	// checkoutCmd switches branches under the checkout lock.
	checkoutCmd = &cobra.Command{
		Use:   "checkout <branch>",
		Short: "Switch the working tree to a branch under the checkout lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOperation(func(ctx context.Context, service *gitops.Service) *gitops.Result {
				return service.Checkout(ctx, args[0])
			})
		},
	}

	// mergeCmd merges a branch under the merge lock.
	mergeCmd = &cobra.Command{
		Use:   "merge <branch>",
		Short: "Merge a branch into the current one under the merge lock",
		Long: `Merges the branch into the current one while holding the merge lock.

A merge that leaves unmerged paths exits with code 5 so pipelines can route
it to manual resolution instead of retrying.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOperation(func(ctx context.Context, service *gitops.Service) *gitops.Result {
				return service.Merge(ctx, args[0])
			})
		},
	}

	// tagCmd creates and pushes an annotated tag.
	tagCmd = &cobra.Command{
		Use:   "tag <name>",
		Short: "Create an annotated tag and push it to the remote",
		Long: `Creates an annotated tag under the tag lock and, when that succeeds,
pushes it to the remote under the push lock. Names that start like a version
must be valid semantic versions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runOperation(func(ctx context.Context, service *gitops.Service) *gitops.Result {
				return service.Tag(ctx, args[0], tagMessage)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	tagCmd.Flags().StringVarP(&tagMessage, "message", "m", "", "tag annotation message (default: \"Release <name>\")")

	rootCmd.AddCommand(pushCmd, pullCmd, checkoutCmd, mergeCmd, tagCmd)
}
