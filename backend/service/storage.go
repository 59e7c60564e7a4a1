package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fleetpanda/bolextract/backend/config"
	"github.com/fleetpanda/bolextract/backend/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type StorageService struct {
	client *minio.Client
	bucket string
	config *config.StorageConfig
}

func NewStorageService(cfg *config.StorageConfig) (*StorageService, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	return &StorageService{
		client: client,
		bucket: cfg.Bucket,
		config: cfg,
	}, nil
}

// Download copies the object stored under key into a new temporary file and
// returns its path. The caller owns the file. On failure no file is left behind.
func (s *StorageService) Download(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: failed to request %q: %w", ErrDownload, key, err)
	}
	defer obj.Close()

	// Stat forces the request so a missing key or denied access fails here.
	info, err := obj.Stat()
	if err != nil {
		logger.Warn(ctx, "s3 object unavailable", "bucket", s.bucket, "key", key, "error", err)
		return "", fmt.Errorf("%w: failed to stat %q: %w", ErrDownload, key, err)
	}

	tmp, err := os.CreateTemp(s.config.TempDir, "bol-s3-*.jpg")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %w", ErrDownload, err)
	}
	path := tmp.Name()

	written, err := io.Copy(tmp, obj)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			logger.Warn(ctx, "failed to remove partial download", "path", path, "error", rmErr)
		}
		return "", fmt.Errorf("%w: failed to copy %q: %w", ErrDownload, key, err)
	}

	logger.Info(ctx, "s3 object downloaded",
		"bucket", s.bucket,
		"key", key,
		"bytes", written,
		"content_type", info.ContentType,
	)
	return path, nil
}

// PresignedURL generates a short-lived GET URL for displaying the object.
func (s *StorageService) PresignedURL(ctx context.Context, key string) (string, error) {
	expiry := time.Duration(s.config.PresignMinutes) * time.Minute
	url, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url.String(), nil
}
