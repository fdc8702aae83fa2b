package cmd

import (
	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/service/server"
)

// serveCmd runs the installer gRPC server.
var serveCmd = &cobra.Command{
	Use:   "serve [listen-address]",
	Short: "Run the installer gRPC server.",
	Long: `Starts the gRPC installer server used by the UI shell.

The server listens on server.listen_address from the configuration file.
Listen address can be provided as argument to override config (e.g., 127.0.0.1:9090).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Use listen address argument if provided, otherwise rely on config.
		var listenAddress string
		if len(args) > 0 {
			listenAddress = args[0]
		}

		return server.Run(cmd.Context(), &server.Options{
			ConfigPath:    configPath,
			ListenAddress: listenAddress,
			BaseDir:       baseDir,
		})
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(serveCmd)
}
