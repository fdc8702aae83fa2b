package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/service/client"
)

var (
	// pathsCmd prints the install directories.
	pathsCmd = &cobra.Command{
		Use:   "paths",
		Short: "Print the install directories.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				return backend.Paths(ctx)
			})
		},
	}

	// runtimeCmd reports the container runtime availability.
	runtimeCmd = &cobra.Command{
		Use:   "runtime",
		Short: "Check that the container runtime is installed and running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				return backend.RuntimeStatus(ctx)
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(pathsCmd, runtimeCmd)
}
