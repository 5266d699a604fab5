package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbhandari/MgmtSays/internal/config"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

// Connect creates a MinIO client and ensures the configured bucket exists.
func Connect(ctx context.Context, cfg *config.MinIOConfig) (*minio.Client, error) {
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := c.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("MinIO connectivity check failed: %w", err)
	}
	if !exists {
		if err := c.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket '%s': %w", cfg.Bucket, err)
		}
	}

	logger.New("minio").WithField("bucket", cfg.Bucket).Info("connected to MinIO")
	return c, nil
}

// HealthCheck verifies connectivity and credentials.
func HealthCheck(ctx context.Context, c *minio.Client) error {
	if c == nil {
		return fmt.Errorf("minio client is nil")
	}
	if _, err := c.ListBuckets(ctx); err != nil {
		return fmt.Errorf("minio health check failed: %w", err)
	}
	return nil
}
