package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/npcforge/forge-installer/internal/config"
)

var (
	// overwriteConfig allows config init to replace an existing file.
	overwriteConfig bool

	// errConfigExists is returned when config init would replace a file.
	errConfigExists = errors.New("configuration file already exists")

	// configCmd groups the configuration commands.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file.",
	}

	// configInitCmd writes the default configuration.
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration to --config.",
		Args:  cobra.NoArgs,
		// The file may not exist yet, so logging setup must not read it.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !overwriteConfig {
				return fmt.Errorf("%s: %w", configPath, errConfigExists)
			}

			cfg := config.Default()
			if baseDir != "" {
				cfg.BaseDir = baseDir
			}

			if err := config.Save(configPath, cfg); err != nil {
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Configuration written to", configPath)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&overwriteConfig, "force", "f", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
