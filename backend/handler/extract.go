package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/model"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/fleetpanda/bolextract/backend/render"
	"github.com/fleetpanda/bolextract/backend/service"
	"github.com/gin-gonic/gin"
)

// Extractor runs the two acquisition paths.
type Extractor interface {
	ExtractUpload(ctx context.Context, r io.Reader) (model.ExtractedFields, error)
	RunCatalog(ctx context.Context, filename string) (*model.Job, error)
}

type ExtractHandler struct {
	extractor Extractor
	upload    *config.UploadConfig
	catalog   *config.CatalogConfig
}

func NewExtractHandler(extractor Extractor, upload *config.UploadConfig, catalog *config.CatalogConfig) *ExtractHandler {
	return &ExtractHandler{
		extractor: extractor,
		upload:    upload,
		catalog:   catalog,
	}
}

type CatalogRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// Upload extracts fields from an operator-supplied JPG/PNG using the hosted agent
func (h *ExtractHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if !h.upload.AllowsExtension(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only JPG, JPEG and PNG files are allowed"})
		return
	}

	if header.Size > h.upload.MaxSizeMB<<20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	ctx := c.Request.Context()
	logger.Info(ctx, "extracting uploaded image", "filename", header.Filename, "size", header.Size)

	fields, err := h.extractor.ExtractUpload(ctx, file)
	if err != nil {
		if errors.Is(err, service.ErrInvalidImage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image file"})
			return
		}
		logger.Error(ctx, "upload extraction failed", "filename", header.Filename, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Error performing OCR: " + err.Error()})
		return
	}

	h.respond(c, gin.H{
		"source":   "upload",
		"filename": header.Filename,
	}, fields)
}

// Catalog runs the job API pipeline for one of the enumerated catalog images
func (h *ExtractHandler) Catalog(c *gin.Context) {
	var req CatalogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if !h.catalog.HasFilename(req.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown filename"})
		return
	}

	ctx := c.Request.Context()
	job, err := h.extractor.RunCatalog(ctx, req.Filename)
	if err != nil {
		if job == nil {
			job = model.NewJob(req.Filename)
		}
		logger.Warn(ctx, "catalog extraction stopped", "filename", req.Filename, "state", job.State, "error", err)

		switch {
		case errors.Is(err, service.ErrIncomplete):
			c.JSON(http.StatusAccepted, gin.H{
				"error":  "OCR result is not completed yet.",
				"job_id": job.ID,
				"status": job.RemoteStatus,
			})
		case errors.Is(err, service.ErrDownload):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to download image"})
		case errors.Is(err, service.ErrInvalidImage):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Invalid image file"})
		case errors.Is(err, service.ErrSubmit):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch job ID"})
		case errors.Is(err, service.ErrPoll):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch result", "job_id": job.ID})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Extraction failed"})
		}
		return
	}

	h.respond(c, gin.H{
		"source":   "catalog",
		"filename": job.Filename,
		"job_id":   job.ID,
		"status":   job.RemoteStatus,
	}, job.ExtractedData)
}

func (h *ExtractHandler) respond(c *gin.Context, body gin.H, fields model.ExtractedFields) {
	format := render.NormalizeFormat(c.Query("format"))
	rendered, err := render.Fields(fields, format)
	if err != nil {
		logger.Error(c.Request.Context(), "failed to render fields", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render result"})
		return
	}

	if fields == nil {
		fields = model.ExtractedFields{}
	}
	body["fields"] = fields
	body["format"] = format
	body["rendered"] = rendered
	c.JSON(http.StatusOK, body)
}
