package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"event-ticketing-core/internal/config"
)

// StorageFactory creates storage services with fallback configuration
type StorageFactory struct {
	config *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) *StorageFactory {
	return &StorageFactory{config: cfg}
}

// CreateStorageService returns R2 with local fallback, or local storage only
// when R2 is unconfigured or unreachable
func (f *StorageFactory) CreateStorageService(ctx context.Context) StorageService {
	fallbackService := NewFallbackStorageService(f.config.Credential.UploadPath, f.config.Credential.BaseURL)

	r2Service, err := NewR2Service(f.config.R2)
	if err != nil {
		slog.Warn("R2 storage unavailable, using local storage only", "error", err)
		return fallbackService
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := r2Service.HealthCheck(ctx); err != nil {
		slog.Warn("R2 health check failed, using local storage only", "error", err)
		return fallbackService
	}

	slog.Info("R2 storage initialized", "bucket", f.config.R2.BucketName)
	return NewStorageServiceWithFallback(r2Service, fallbackService)
}

// SetupR2Bucket creates the credential image bucket
func (f *StorageFactory) SetupR2Bucket(ctx context.Context) error {
	r2Service, err := NewR2Service(f.config.R2)
	if err != nil {
		return fmt.Errorf("failed to create R2 service: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := r2Service.CreateBucket(ctx); err != nil {
		return fmt.Errorf("failed to create R2 bucket: %w", err)
	}

	return nil
}

// ValidateR2Configuration validates the R2 configuration
func (f *StorageFactory) ValidateR2Configuration() error {
	cfg := f.config.R2

	if cfg.AccountID == "" && cfg.Endpoint == "" {
		return errors.New("R2_ACCOUNT_ID or R2_ENDPOINT is required")
	}
	if cfg.AccessKeyID == "" {
		return errors.New("R2_ACCESS_KEY_ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return errors.New("R2_SECRET_ACCESS_KEY is required")
	}
	if cfg.BucketName == "" {
		return errors.New("R2_BUCKET_NAME is required")
	}

	return nil
}
