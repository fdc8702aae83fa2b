package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/service/client"
)

var (
	// gameCmd groups the game commands.
	gameCmd = &cobra.Command{
		Use:   "game",
		Short: "Manage the game.",
	}

	// gameDownloadCmd installs the pinned game release.
	gameDownloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download the pinned game release.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				return backend.DownloadGame(ctx)
			})
		},
	}

	// gameLaunchCmd opens the installed game.
	gameLaunchCmd = &cobra.Command{
		Use:   "launch",
		Short: "Launch the installed game.",
		Long:  "Finds the game executable in the install directory and opens it, unless it is already running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var failed bool

			err := run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				result, err := backend.LaunchGame(ctx)
				if err == nil {
					failed = !result.OK
				}

				return result, err
			})
			if err == nil && failed {
				return errOperationFailed
			}

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	gameCmd.AddCommand(gameDownloadCmd, gameLaunchCmd)
	rootCmd.AddCommand(gameCmd)
}
