package handler

import (
	"context"
	"net/http"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Previewer issues short-lived display URLs for stored objects.
type Previewer interface {
	PresignedURL(ctx context.Context, key string) (string, error)
}

type CatalogHandler struct {
	previewer Previewer
	catalog   *config.CatalogConfig
}

func NewCatalogHandler(previewer Previewer, catalog *config.CatalogConfig) *CatalogHandler {
	return &CatalogHandler{previewer: previewer, catalog: catalog}
}

// List returns the enumerated catalog filenames in configured order
func (h *CatalogHandler) List(c *gin.Context) {
	filenames := h.catalog.Filenames
	if filenames == nil {
		filenames = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"filenames": filenames})
}

// Preview returns a presigned URL so the browser can show the selected image
func (h *CatalogHandler) Preview(c *gin.Context) {
	filename := c.Param("filename")
	if !h.catalog.HasFilename(filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown filename"})
		return
	}

	url, err := h.previewer.PresignedURL(c.Request.Context(), filename)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to presign catalog image", "filename", filename, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to generate preview URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"filename": filename, "url": url})
}
