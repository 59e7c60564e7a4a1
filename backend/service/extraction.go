package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/fleetpanda/bolextract/backend/model"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
)

type ObjectDownloader interface {
	Download(ctx context.Context, key string) (string, error)
}

type JobClient interface {
	SubmitFile(ctx context.Context, filename string) (string, error)
	GetResult(ctx context.Context, jobID string) (*JobResultResponse, error)
}

type ImageExtractor interface {
	ExtractImage(ctx context.Context, img image.Image) (map[string]any, error)
}

// ExtractionService wires the two acquisition paths to their extraction clients.
type ExtractionService struct {
	storage   ObjectDownloader
	jobs      JobClient
	agent     ImageExtractor
	pollDelay time.Duration
	maxPixels int64
}

// NewExtractionService wires the clients. maxPixels caps the width*height of
// uploaded images; zero or less means no cap.
func NewExtractionService(storage ObjectDownloader, jobs JobClient, agent ImageExtractor, pollDelay time.Duration, maxPixels int64) *ExtractionService {
	return &ExtractionService{
		storage:   storage,
		jobs:      jobs,
		agent:     agent,
		pollDelay: pollDelay,
		maxPixels: maxPixels,
	}
}

// ExtractUpload decodes an uploaded JPEG/PNG and runs it through the hosted agent.
// The header is checked against the pixel cap before any bitmap is allocated.
func (s *ExtractionService) ExtractUpload(ctx context.Context, r io.Reader) (model.ExtractedFields, error) {
	var header bytes.Buffer
	imgCfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if err := s.checkPixels(imgCfg); err != nil {
		logger.Warn(ctx, "upload rejected", "width", imgCfg.Width, "height", imgCfg.Height, "error", err)
		return nil, err
	}

	img, format, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	logger.Debug(ctx, "upload decoded", "format", format, "bounds", img.Bounds().String())

	data, err := s.agent.ExtractImage(ctx, img)
	if err != nil {
		return nil, err
	}
	return model.ExtractedFields(data), nil
}

// RunCatalog downloads filename from storage, submits it to the job API and
// polls exactly once. The returned job reflects how far the interaction got.
func (s *ExtractionService) RunCatalog(ctx context.Context, filename string) (*model.Job, error) {
	job := model.NewJob(filename)

	path, err := s.storage.Download(ctx, filename)
	if err != nil {
		return job, err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn(ctx, "error deleting downloaded file", "path", path, "error", err)
		}
	}()

	if err := verifyImageFile(path); err != nil {
		return job, err
	}

	jobID, err := s.jobs.SubmitFile(ctx, filename)
	if err != nil {
		return job, err
	}
	if err := job.Submit(jobID); err != nil {
		return job, fmt.Errorf("%w: no job id returned", ErrSubmit)
	}
	ctx = logger.WithJobID(ctx, jobID)

	if err := sleepContext(ctx, s.pollDelay); err != nil {
		return job, fmt.Errorf("%w: %w", ErrPoll, err)
	}

	result, err := s.jobs.GetResult(ctx, jobID)
	if err != nil {
		return job, err
	}

	if result.Completed() {
		if err := job.Complete(result.Result.ExtractedData); err != nil {
			return job, fmt.Errorf("%w: %w", ErrPoll, err)
		}
		logger.Info(ctx, "job completed", "fields", len(job.ExtractedData))
		return job, nil
	}

	if err := job.MarkNotCompleted(result.Status); err != nil {
		return job, fmt.Errorf("%w: %w", ErrPoll, err)
	}
	logger.Warn(ctx, "job not completed", "status", result.Status)
	return job, fmt.Errorf("%w: status %q", ErrIncomplete, result.Status)
}

func (s *ExtractionService) checkPixels(c image.Config) error {
	if s.maxPixels <= 0 {
		return nil
	}
	if int64(c.Width)*int64(c.Height) > s.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, c.Width, c.Height, s.maxPixels)
	}
	return nil
}

func verifyImageFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
