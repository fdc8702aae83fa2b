package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/progress"
	"github.com/npcforge/forge-installer/internal/service/client"
)

// errServerRequired is returned when watch is used without --server.
var errServerRequired = errors.New("--server is required")

// watchCmd streams progress events of a running server.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print download progress of a running installer server.",
	Long:  "Prints one JSON line per progress event until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serverAddress == "" {
			return errServerRequired
		}

		ctx := logger.WithName(cmd.Context(), "forge-installer")

		remote, err := client.Remote(ctx, serverAddress)
		if err != nil {
			return err
		}

		defer func() {
			_ = remote.Close()
		}()

		out := cmd.OutOrStdout()

		return remote.WatchProgress(ctx, func(event progress.Event) {
			if printErr := client.Print(out, event); printErr != nil {
				logger.WarnKV(ctx, "Could not print progress", "error", printErr)
			}
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(watchCmd)
}
