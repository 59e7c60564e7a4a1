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

var jobCmd = &cobra.Command{
	Use:   "job [catalog-filename]",
	Short: "Run the job API pipeline for one catalog image",
	Long: `Download a catalog image from S3, submit it to the job API, wait the
configured delay and poll the result once.

Requires AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and API_PW.`,
	Example: `  bolextract job 061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg
  bolextract job 061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg --format json --delay 0`,
	Args: cobra.ExactArgs(1),
	RunE: runJob,
}

func init() {
	rootCmd.AddCommand(jobCmd)

	jobCmd.Flags().StringP("format", "f", render.FormatYAML, "Output format (yaml, json)")
	jobCmd.Flags().Int("delay", -1, "Seconds to wait before polling (default: job_api.poll_delay_seconds)")
	jobCmd.Flags().Bool("any-filename", false, "Allow keys outside the configured catalog")
}

func runJob(cmd *cobra.Command, args []string) error {
	filename := args[0]
	format, _ := cmd.Flags().GetString("format")
	delay, _ := cmd.Flags().GetInt("delay")
	anyFilename, _ := cmd.Flags().GetBool("any-filename")

	if !anyFilename && !cfg.Catalog.HasFilename(filename) {
		return fmt.Errorf("unknown filename %q (use --any-filename to bypass the catalog)", filename)
	}
	if cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "" {
		return fmt.Errorf("storage credentials are not set (%s, %s)", config.EnvAccessKeyID, config.EnvSecretAccessKey)
	}
	if cfg.JobAPI.Password == "" {
		return fmt.Errorf("job_api.password is not set (%s)", config.EnvAPIPassword)
	}
	if delay >= 0 {
		cfg.JobAPI.PollDelaySeconds = &delay
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageSvc, err := service.NewStorageService(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage client: %w", err)
	}
	extraction := service.NewExtractionService(storageSvc, service.NewJobAPIService(&cfg.JobAPI), nil, pollDelay(&cfg.JobAPI), cfg.Upload.MaxPixels)

	job, err := extraction.RunCatalog(ctx, filename)
	if err != nil {
		if job != nil && errors.Is(err, service.ErrIncomplete) {
			return fmt.Errorf("OCR result is not completed yet (job %s, status %q)", job.ID, job.RemoteStatus)
		}
		return err
	}

	out, err := render.Fields(job.ExtractedData, render.NormalizeFormat(format))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "job %s %s\n", job.ID, job.RemoteStatus)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
