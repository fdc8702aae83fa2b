package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/service/client"
)

var (
	// forceDownload bypasses the cached release.
	forceDownload bool

	// apiCmd groups the API deployment commands.
	apiCmd = &cobra.Command{
		Use:   "api",
		Short: "Manage the API deployment.",
	}

	// apiDownloadCmd installs the latest API release.
	apiDownloadCmd = &cobra.Command{
		Use:   "download",
		Short: "Download the latest API release and prepare its environment file.",
		Long: `Resolves the latest API release and installs it unless the cached release
already matches and its compose file is still present. Use --force to reinstall.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				return backend.ResolveAndDownloadLatest(ctx, forceDownload)
			})
		},
	}

	// apiUpCmd brings the API deployment up.
	apiUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Bring the API deployment up with docker compose.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var failed bool

			err := run(cmd, func(ctx context.Context, backend client.Backend) (any, error) {
				result, err := backend.ComposeUp(ctx)
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
	apiDownloadCmd.Flags().BoolVarP(&forceDownload, "force", "f", false, "reinstall even when the cached release matches")

	apiCmd.AddCommand(apiDownloadCmd, apiUpCmd)
	rootCmd.AddCommand(apiCmd)
}
