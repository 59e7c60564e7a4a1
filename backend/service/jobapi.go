package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/model"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
)

// JobAPIService talks to the process-file / result endpoints.
type JobAPIService struct {
	config     *config.JobAPIConfig
	httpClient *http.Client
}

// ProcessFileResponse is the body of a successful process-file call.
type ProcessFileResponse struct {
	JobID string `json:"job_id"`
}

// JobResultResponse is the body of a successful result call.
type JobResultResponse struct {
	Status string `json:"status"`
	Result struct {
		ExtractedData model.ExtractedFields `json:"ExtractedData"`
	} `json:"result"`
}

// Completed reports whether the job finished and carries extracted data.
func (r *JobResultResponse) Completed() bool {
	return r.Status == model.RemoteStatusCompleted
}

func NewJobAPIService(cfg *config.JobAPIConfig) *JobAPIService {
	return &JobAPIService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SubmitFile asks the API to process filename and returns the job id.
// A 2xx body without job_id yields an empty id and no error.
func (s *JobAPIService) SubmitFile(ctx context.Context, filename string) (string, error) {
	endpoint := fmt.Sprintf("%s/process-file/%s", s.config.BaseURL, url.PathEscape(filename))

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmit, err)
	}

	var result ProcessFileResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %w", ErrSubmit, err)
	}

	logger.Info(ctx, "job submitted", "filename", filename, "job_id", result.JobID)
	return result.JobID, nil
}

// GetResult fetches the status, and extracted data when completed, of jobID.
func (s *JobAPIService) GetResult(ctx context.Context, jobID string) (*JobResultResponse, error) {
	endpoint := fmt.Sprintf("%s/result/%s", s.config.BaseURL, url.PathEscape(jobID))

	body, err := s.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoll, err)
	}

	logger.Debug(ctx, "raw result response", "body", string(body))

	var result JobResultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrPoll, err)
	}

	return &result, nil
}

func (s *JobAPIService) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(s.config.Username, s.config.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	return body, nil
}
