package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	configPath string
	envFile    string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bolextract",
	Short: "Extract structured fields from Bill of Lading images",
	Long: `bolextract reads Bill of Lading images and extracts delivery fields
(truck number, carrier, quantities, ...) through one of two remote services:

  - uploaded images go to the hosted extraction agent
  - catalog images are fetched from S3 and submitted to the job API

Secrets are read from the environment, optionally via a .env file:
  AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY - catalog bucket credentials
  LLAMA_CLOUD_API_KEY                      - hosted extraction agent
  API_PW                                   - job API basic auth password
  AUTHENTICATION_PW                        - operator login password
  JWT_SECRET                               - session signing key`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(configPath, envFile, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}
		cfg = loaded

		logger.Init(&logger.Config{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Output: cmd.ErrOrStderr(),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file with secrets")
}

// loadConfig reads the YAML file, then overlays secrets from the
// environment and the optional dotenv file. A missing file is only an
// error when it was asked for explicitly.
func loadConfig(path, dotenv string, explicit bool) (*config.Config, error) {
	if err := config.LoadDotEnv(dotenv); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", dotenv, err)
	}

	loaded, err := config.Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		loaded = config.Default()
	case err != nil:
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	loaded.ApplyEnv()
	return loaded, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
