package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/gin-gonic/gin"
)

type stubPreviewer struct {
	url  string
	err  error
	keys []string
}

func (p *stubPreviewer) PresignedURL(ctx context.Context, key string) (string, error) {
	p.keys = append(p.keys, key)
	return p.url, p.err
}

func newCatalogRouter(h *CatalogHandler) *gin.Engine {
	router := gin.New()
	router.GET("/catalog", h.List)
	router.GET("/catalog/:filename/preview", h.Preview)
	return router
}

func TestCatalogHandlerList(t *testing.T) {
	h := NewCatalogHandler(&stubPreviewer{}, testCatalogConfig())

	w := httptest.NewRecorder()
	newCatalogRouter(h).ServeHTTP(w, httptest.NewRequest("GET", "/catalog", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	filenames := decodeBody(t, w)["filenames"].([]any)
	if len(filenames) != 2 || filenames[0] != "061DF0F8-F4E8-44B1-81AA-1AC209FBBF4A.jpg" {
		t.Errorf("Expected configured filenames in order, got %v", filenames)
	}
}

func TestCatalogHandlerListEmpty(t *testing.T) {
	h := NewCatalogHandler(&stubPreviewer{}, &config.CatalogConfig{})

	w := httptest.NewRecorder()
	newCatalogRouter(h).ServeHTTP(w, httptest.NewRequest("GET", "/catalog", nil))

	if w.Body.String() != `{"filenames":[]}` {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}
}

func TestCatalogHandlerPreview(t *testing.T) {
	previewer := &stubPreviewer{url: "https://s3.amazonaws.com/fp-prod-s3/x?X-Amz-Signature=abc"}
	h := NewCatalogHandler(previewer, testCatalogConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/catalog/0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg/preview", nil)
	newCatalogRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if decodeBody(t, w)["url"] != previewer.url {
		t.Errorf("Expected presigned url, got %s", w.Body.String())
	}
	if len(previewer.keys) != 1 || previewer.keys[0] != "0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg" {
		t.Errorf("Expected presign for the catalog key, got %v", previewer.keys)
	}
}

func TestCatalogHandlerPreviewUnknown(t *testing.T) {
	previewer := &stubPreviewer{}
	h := NewCatalogHandler(previewer, testCatalogConfig())

	w := httptest.NewRecorder()
	newCatalogRouter(h).ServeHTTP(w, httptest.NewRequest("GET", "/catalog/other.jpg/preview", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if len(previewer.keys) != 0 {
		t.Error("Expected no presign for unknown filename")
	}
}

func TestCatalogHandlerPreviewFailure(t *testing.T) {
	h := NewCatalogHandler(&stubPreviewer{err: errors.New("signing failed")}, testCatalogConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/catalog/0640B292-4CDD-4419-B4F9-C7CADA96E1C0.jpg/preview", nil)
	newCatalogRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", w.Code)
	}
}
