package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/config"
	"github.com/npcforge/forge-installer/internal/logger"
	"github.com/npcforge/forge-installer/internal/service/client"
	"github.com/npcforge/forge-installer/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress selects a running installer server instead of the in-process installer.
	serverAddress string
	// baseDir overrides the base directory from the configuration.
	baseDir string
	// logLevel overrides the log level from the configuration.
	logLevel string

	// errUnknownLogLevel is returned for an unsupported --log-level value.
	errUnknownLogLevel = errors.New("unknown log level")
	// errOperationFailed is returned after printing a result that reports a failure.
	errOperationFailed = errors.New("operation failed")

	// rootCmd represents the base command of the installer.
	rootCmd = &cobra.Command{
		Use:   "forge-installer",
		Short: "Install and run the NPCForge API and game.",
		Long: `Downloads the NPCForge API deployment and the game from their release streams,
prepares the environment file, brings the API up with docker compose and launches the game.

Commands run the installer in-process. With --server they call a running
"forge-installer serve" instance over gRPC instead. Results are printed as JSON.`,
		SilenceUsage:      true,
		PersistentPreRunE: setupLogging,
	}
)

// Execute runs the forge-installer CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := rootCmd.ExecuteContext(ctx)

	stop()
	logger.Sync()

	if err != nil {
		os.Exit(1)
	}
}

// setupLogging applies the log level from the flag or the configuration.
func setupLogging(*cobra.Command, []string) error {
	level := logLevel
	if level == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		level = cfg.LogLevel
	}

	parsed, ok := logger.ParseLogLevel(level)
	if !ok {
		return fmt.Errorf("%q: %w", level, errUnknownLogLevel)
	}

	logger.SetLevel(parsed)

	return nil
}

// run opens the installer, calls fn and prints its result.
func run(cmd *cobra.Command, fn func(ctx context.Context, backend client.Backend) (any, error)) error {
	ctx := logger.WithName(cmd.Context(), "forge-installer")

	backend, err := client.Open(ctx, &client.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		BaseDir:       baseDir,
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = backend.Close()
	}()

	result, err := fn(ctx, backend)
	if err != nil {
		logger.ErrorKV(ctx, "Command failed", "command", cmd.CommandPath(), "error", err)

		return err
	}

	return client.Print(cmd.OutOrStdout(), result)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.StringVarP(&serverAddress, "server", "s", "", "address of a running installer server")
	flags.StringVar(&baseDir, "base-dir", "", "override the base directory")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}
