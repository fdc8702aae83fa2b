package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/service/client"
)

var (
	// secretCmd groups the keystore commands.
	secretCmd = &cobra.Command{
		Use:   "secret",
		Short: "Manage stored secrets.",
	}

	// secretSetCmd stores a secret.
	secretSetCmd = &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a secret used when preparing the environment file.",
		Args:  cobra.ExactArgs(2), //nolint:mnd // Key and value.
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				if err := backend.SetSecret(ctx, args[0], args[1]); err != nil {
					return nil, err
				}

				return map[string]bool{"ok": true}, nil
			})
		},
	}

	// secretGetCmd prints one secret or all of them.
	secretGetCmd = &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print a stored secret, or every secret without a key.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				if len(args) == 0 {
					return backend.Secrets(ctx)
				}

				return backend.GetSecret(ctx, args[0])
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	secretCmd.AddCommand(secretSetCmd, secretGetCmd)
	rootCmd.AddCommand(secretCmd)
}
