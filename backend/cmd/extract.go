package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/render"
	"github.com/fleetpanda/bolextract/backend/service"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [image-file]",
	Short: "Extract fields from a local JPG/PNG with the hosted agent",
	Long: `Send a local Bill of Lading image to the hosted extraction agent and print
the extracted fields.

Requires LLAMA_CLOUD_API_KEY.`,
	Example: `  bolextract extract ./bol.jpg
  bolextract extract ./bol.png --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("format", "f", render.FormatYAML, "Output format (yaml, json)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, _ := cmd.Flags().GetString("format")

	if cfg.Agent.APIKey == "" {
		return fmt.Errorf("agent.api_key is not set (%s)", config.EnvAgentAPIKey)
	}
	if !cfg.Upload.AllowsExtension(path) {
		return errors.New("only JPG, JPEG and PNG files are allowed")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extraction := service.NewExtractionService(nil, nil, service.NewAgentService(&cfg.Agent), 0, cfg.Upload.MaxPixels)
	fields, err := extraction.ExtractUpload(ctx, f)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			return fmt.Errorf("invalid image file: %w", err)
		}
		return fmt.Errorf("error performing OCR: %w", err)
	}

	out, err := render.Fields(fields, render.NormalizeFormat(format))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
