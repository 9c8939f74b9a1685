package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rohan1205/NeuraAttend/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "neuraattend",
	Short: "Face recognition attendance",
	Long: `NeuraAttend recognizes enrolled people in camera frames and records
at most one attendance mark per person per day.

Models are served by an inference server, the gallery of enrolled faces is
read from a JSON file or PostgreSQL, and attendance is stored in memory,
PostgreSQL or MariaDB.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig loads the configuration, applies the command's flag overrides
// and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	applyOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
