package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
)

// Terminal states of a hosted extraction job.
const (
	agentJobSuccess        = "SUCCESS"
	agentJobPartialSuccess = "PARTIAL_SUCCESS"
	agentJobError          = "ERROR"
	agentJobCancelled      = "CANCELLED"
)

// AgentService runs images through the named hosted extraction agent.
// Construct it once per process; the agent handle is resolved on first use
// and reused for every later call.
type AgentService struct {
	config     *config.AgentConfig
	httpClient *http.Client

	mu      sync.Mutex
	agentID string
}

type agentResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fileResponse struct {
	ID string `json:"id"`
}

type extractionJobRequest struct {
	ExtractionAgentID string `json:"extraction_agent_id"`
	FileID            string `json:"file_id"`
}

type extractionJobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type extractionResultResponse struct {
	Data map[string]any `json:"data"`
}

func NewAgentService(cfg *config.AgentConfig) *AgentService {
	// No client timeout: extraction blocks until the agent answers or ctx ends.
	return &AgentService{
		config:     cfg,
		httpClient: &http.Client{},
	}
}

// ExtractImage writes img to a temporary JPEG, extracts it and removes the
// file whatever the outcome. Removal failures are only logged.
func (s *AgentService) ExtractImage(ctx context.Context, img image.Image) (map[string]any, error) {
	tmp, err := os.CreateTemp(s.config.TempDir, "bol-upload-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create temp file: %w", ErrExtraction, err)
	}
	path := tmp.Name()
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn(ctx, "error deleting temporary file", "path", path, "error", err)
		}
	}()

	encodeErr := jpeg.Encode(tmp, img, &jpeg.Options{Quality: 90})
	if closeErr := tmp.Close(); encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		return nil, fmt.Errorf("%w: failed to encode image: %w", ErrExtraction, encodeErr)
	}

	return s.ExtractFile(ctx, path)
}

// ExtractFile runs the agent on a local image file and returns its data payload as-is.
func (s *AgentService) ExtractFile(ctx context.Context, path string) (map[string]any, error) {
	agentID, err := s.Agent(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	fileID, err := s.uploadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	job, err := s.createJob(ctx, agentID, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	ctx = logger.WithJobID(ctx, job.ID)
	logger.Info(ctx, "extraction job created", "agent_id", agentID, "file_id", fileID)

	if err := s.waitForJob(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	data, err := s.fetchResult(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	logger.Info(ctx, "extraction completed", "fields", len(data))
	return data, nil
}

// Agent returns the cached agent id, resolving it by name on first use.
func (s *AgentService) Agent(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.agentID != "" {
		return s.agentID, nil
	}

	endpoint := fmt.Sprintf("%s/api/v1/extraction/extraction-agents/by-name/%s",
		s.config.APIURL, url.PathEscape(s.config.AgentName))

	var agent agentResponse
	if err := s.doJSON(ctx, http.MethodGet, endpoint, nil, "", &agent); err != nil {
		return "", fmt.Errorf("failed to get agent %q: %w", s.config.AgentName, err)
	}
	if agent.ID == "" {
		return "", fmt.Errorf("agent %q not found", s.config.AgentName)
	}

	s.agentID = agent.ID
	logger.Info(ctx, "extraction agent resolved", "agent_name", s.config.AgentName, "agent_id", agent.ID)
	return s.agentID, nil
}

func (s *AgentService) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("upload_file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	var file fileResponse
	if err := s.doJSON(ctx, http.MethodPost, s.config.APIURL+"/api/v1/files", &body, writer.FormDataContentType(), &file); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	if file.ID == "" {
		return "", fmt.Errorf("upload returned no file id")
	}
	return file.ID, nil
}

func (s *AgentService) createJob(ctx context.Context, agentID, fileID string) (*extractionJobResponse, error) {
	payload, err := json.Marshal(extractionJobRequest{ExtractionAgentID: agentID, FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var job extractionJobResponse
	if err := s.doJSON(ctx, http.MethodPost, s.config.APIURL+"/api/v1/extraction/jobs", bytes.NewReader(payload), "application/json", &job); err != nil {
		return nil, fmt.Errorf("failed to create extraction job: %w", err)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("extraction job returned no id")
	}
	return &job, nil
}

// waitForJob blocks until the job reaches a terminal state. It is part of the
// agent's synchronous extract call, not a retry of a failed request.
func (s *AgentService) waitForJob(ctx context.Context, job *extractionJobResponse) error {
	interval := time.Duration(s.config.PollIntervalSeconds) * time.Second
	endpoint := fmt.Sprintf("%s/api/v1/extraction/jobs/%s", s.config.APIURL, url.PathEscape(job.ID))

	status := job
	for {
		switch status.Status {
		case agentJobSuccess, agentJobPartialSuccess:
			return nil
		case agentJobError, agentJobCancelled:
			if status.Error != "" {
				return fmt.Errorf("extraction job %s: %s", status.Status, status.Error)
			}
			return fmt.Errorf("extraction job %s", status.Status)
		}

		if interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		var next extractionJobResponse
		if err := s.doJSON(ctx, http.MethodGet, endpoint, nil, "", &next); err != nil {
			return fmt.Errorf("failed to get job status: %w", err)
		}
		logger.Debug(ctx, "extraction job status", "status", next.Status)
		status = &next
	}
}

func (s *AgentService) fetchResult(ctx context.Context, jobID string) (map[string]any, error) {
	endpoint := fmt.Sprintf("%s/api/v1/extraction/jobs/%s/result", s.config.APIURL, url.PathEscape(jobID))

	var result extractionResultResponse
	if err := s.doJSON(ctx, http.MethodGet, endpoint, nil, "", &result); err != nil {
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}
	if result.Data == nil {
		result.Data = map[string]any{}
	}
	return result.Data, nil
}

func (s *AgentService) doJSON(ctx context.Context, method, endpoint string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
