package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/model"
	"github.com/fleetpanda/bolextract/backend/service"
	"github.com/gin-gonic/gin"
)

type stubExtractor struct {
	fields      model.ExtractedFields
	uploadErr   error
	job         *model.Job
	catalogErr  error
	uploadCalls int
	catalogArgs []string
}

func (s *stubExtractor) ExtractUpload(ctx context.Context, r io.Reader) (model.ExtractedFields, error) {
	s.uploadCalls++
	io.Copy(io.Discard, r)
	return s.fields, s.uploadErr
}

func (s *stubExtractor) RunCatalog(ctx context.Context, filename string) (*model.Job, error) {
	s.catalogArgs = append(s.catalogArgs, filename)
	return s.job, s.catalogErr
}

func testUploadConfig() *config.UploadConfig {
	return &config.UploadConfig{
		MaxSizeMB:         1,
		AllowedExtensions: []string{".jpg", ".jpeg", ".png"},
	}
}

func testCatalogConfig() *config.CatalogConfig {
	return &config.CatalogConfig{
		Filenames: []string{"061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg", "0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg"},
	}
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h *ExtractHandler, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.POST("/upload", h.Upload)

	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	return response
}

func TestExtractHandlerUpload(t *testing.T) {
	stub := &stubExtractor{fields: model.ExtractedFields{"truck_number": "T-42"}}
	h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

	w := doUpload(t, h, "/upload", "file", "bol.PNG", []byte("image bytes"))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeBody(t, w)
	if response["rendered"] != "truck_number: T-42" {
		t.Errorf("Expected YAML rendering, got %q", response["rendered"])
	}
	if response["format"] != "yaml" {
		t.Errorf("Expected default yaml format, got %v", response["format"])
	}
	fields := response["fields"].(map[string]any)
	if fields["truck_number"] != "T-42" {
		t.Errorf("Expected raw fields in response, got %v", fields)
	}
}

func TestExtractHandlerUploadJSONFormat(t *testing.T) {
	stub := &stubExtractor{fields: model.ExtractedFields{"truck_number": "T-42"}}
	h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

	w := doUpload(t, h, "/upload?format=json", "file", "bol.jpg", []byte("image bytes"))

	response := decodeBody(t, w)
	if response["format"] != "json" {
		t.Errorf("Expected json format, got %v", response["format"])
	}
	if !strings.Contains(response["rendered"].(string), `"truck_number": "T-42"`) {
		t.Errorf("Expected JSON rendering, got %q", response["rendered"])
	}
}

func TestExtractHandlerUploadRejections(t *testing.T) {
	tests := []struct {
		name          string
		field         string
		filename      string
		content       []byte
		uploadErr     error
		expectedError string
		reachesAgent  bool
	}{
		{
			name:          "no file",
			field:         "other",
			filename:      "bol.jpg",
			content:       []byte("x"),
			expectedError: "No file provided",
		},
		{
			name:          "pdf",
			field:         "file",
			filename:      "bol.pdf",
			content:       []byte("%PDF-1.4"),
			expectedError: "Only JPG, JPEG and PNG files are allowed",
		},
		{
			name:          "gif",
			field:         "file",
			filename:      "bol.gif",
			content:       []byte("GIF89a"),
			expectedError: "Only JPG, JPEG and PNG files are allowed",
		},
		{
			name:          "too large",
			field:         "file",
			filename:      "bol.jpg",
			content:       bytes.Repeat([]byte{0xff}, 1<<20+1),
			expectedError: "File too large",
		},
		{
			name:          "undecodable",
			field:         "file",
			filename:      "bol.jpg",
			content:       []byte("not really a jpeg"),
			uploadErr:     service.ErrInvalidImage,
			expectedError: "Invalid image file",
			reachesAgent:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubExtractor{uploadErr: tt.uploadErr}
			h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

			w := doUpload(t, h, "/upload", tt.field, tt.filename, tt.content)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			if got := decodeBody(t, w)["error"]; got != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, got)
			}
			if (stub.uploadCalls > 0) != tt.reachesAgent {
				t.Errorf("Expected extractor reached=%v, got %d calls", tt.reachesAgent, stub.uploadCalls)
			}
		})
	}
}

func TestExtractHandlerUploadAgentFailure(t *testing.T) {
	stub := &stubExtractor{uploadErr: errors.Join(service.ErrExtraction, errors.New("agent unavailable"))}
	h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

	w := doUpload(t, h, "/upload", "file", "bol.jpeg", []byte("image bytes"))

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
	msg, _ := decodeBody(t, w)["error"].(string)
	if !strings.HasPrefix(msg, "Error performing OCR: ") || !strings.Contains(msg, "agent unavailable") {
		t.Errorf("Expected OCR error with detail, got %q", msg)
	}
}

func TestExtractHandlerUploadPixelCap(t *testing.T) {
	var img bytes.Buffer
	if err := png.Encode(&img, image.NewGray(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	svc := service.NewExtractionService(nil, nil, nil, 0, 1024)
	h := NewExtractHandler(svc, testUploadConfig(), testCatalogConfig())

	w := doUpload(t, h, "/upload", "file", "bol.png", img.Bytes())

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if msg := decodeBody(t, w)["error"]; msg != "Invalid image file" {
		t.Errorf("Expected 'Invalid image file', got %v", msg)
	}
}

func doCatalog(h *ExtractHandler, body string) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/catalog", h.Catalog)

	req := httptest.NewRequest("POST", "/catalog", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExtractHandlerCatalog(t *testing.T) {
	job := model.NewJob("061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg")
	job.Submit("abc123")
	job.Complete(model.ExtractedFields{"truck_number": "T-42"})

	stub := &stubExtractor{job: job}
	h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

	w := doCatalog(h, `{"filename": "061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decodeBody(t, w)
	if response["job_id"] != "abc123" {
		t.Errorf("Expected job_id abc123, got %v", response["job_id"])
	}
	if response["rendered"] != "truck_number: T-42" {
		t.Errorf("Expected rendered fields, got %q", response["rendered"])
	}
}

func TestExtractHandlerCatalogUnknownFilename(t *testing.T) {
	stub := &stubExtractor{}
	h := NewExtractHandler(stub, testUploadConfig(), testCatalogConfig())

	w := doCatalog(h, `{"filename": "../../etc/passwd"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if got := decodeBody(t, w)["error"]; got != "Unknown filename" {
		t.Errorf("Expected 'Unknown filename', got %v", got)
	}
	if len(stub.catalogArgs) != 0 {
		t.Error("Expected pipeline not to run for unknown filename")
	}
}

func TestExtractHandlerCatalogInvalidRequest(t *testing.T) {
	h := NewExtractHandler(&stubExtractor{}, testUploadConfig(), testCatalogConfig())

	w := doCatalog(h, `{}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestExtractHandlerCatalogFailures(t *testing.T) {
	filename := "0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg"

	submitted := model.NewJob(filename)
	submitted.Submit("abc123")

	notCompleted := model.NewJob(filename)
	notCompleted.Submit("abc123")
	notCompleted.MarkNotCompleted("pending")

	tests := []struct {
		name           string
		job            *model.Job
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"download", model.NewJob(filename), errors.Join(service.ErrDownload, errors.New("NoSuchKey")), http.StatusBadGateway, "Failed to download image"},
		{"submit", model.NewJob(filename), errors.Join(service.ErrSubmit, errors.New("500")), http.StatusBadGateway, "Failed to fetch job ID"},
		{"poll", submitted, errors.Join(service.ErrPoll, errors.New("timeout")), http.StatusBadGateway, "Failed to fetch result"},
		{"incomplete", notCompleted, service.ErrIncomplete, http.StatusAccepted, "OCR result is not completed yet."},
		{"unexpected", model.NewJob(filename), errors.New("boom"), http.StatusInternalServerError, "Extraction failed"},
		{"submit without job", nil, errors.Join(service.ErrSubmit, errors.New("500")), http.StatusBadGateway, "Failed to fetch job ID"},
		{"poll without job", nil, errors.Join(service.ErrPoll, errors.New("timeout")), http.StatusBadGateway, "Failed to fetch result"},
		{"incomplete without job", nil, service.ErrIncomplete, http.StatusAccepted, "OCR result is not completed yet."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExtractHandler(&stubExtractor{job: tt.job, catalogErr: tt.err}, testUploadConfig(), testCatalogConfig())

			w := doCatalog(h, `{"filename": "`+filename+`"}`)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			response := decodeBody(t, w)
			if response["error"] != tt.expectedError {
				t.Errorf("Expected error %q, got %v", tt.expectedError, response["error"])
			}
			if tt.expectedStatus == http.StatusAccepted && tt.job != nil {
				if response["job_id"] != "abc123" || response["status"] != "pending" {
					t.Errorf("Expected job id and status in 202 body, got %v", response)
				}
			}
		})
	}
}
