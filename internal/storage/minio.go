package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

var _ interfaces.Storage = (*MinIOStorage)(nil)

// MinIOStorage keeps raw document bytes in an object store bucket. Objects
// are keyed as companyID/uuid_filename so uploads never collide and a
// company's files can be listed by prefix.
type MinIOStorage struct {
	client *minio.Client
	bucket string
	log    *logger.Logger
}

// NewMinIOStorage creates object storage backed by the given bucket.
func NewMinIOStorage(client *minio.Client, bucket string) *MinIOStorage {
	return &MinIOStorage{
		client: client,
		bucket: bucket,
		log:    logger.New("storage.minio"),
	}
}

// Save writes the file bytes and returns the object path used as the
// document's storage reference.
func (s *MinIOStorage) Save(ctx context.Context, content []byte, filename, companyID string) (string, error) {
	objectPath := fmt.Sprintf("%s/%s_%s", companyID, uuid.NewString(), filepath.Base(filename))

	_, err := s.client.PutObject(ctx, s.bucket, objectPath,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("failed to store object '%s': %w", objectPath, err)
	}

	s.log.WithField("path", objectPath).WithField("size", len(content)).Debug("stored document")
	return objectPath, nil
}

// Read returns the full content of a stored object.
func (s *MinIOStorage) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object '%s': %w", path, err)
	}
	defer obj.Close()

	content, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", path, err)
	}
	return content, nil
}

// Delete removes a stored object.
func (s *MinIOStorage) Delete(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object '%s': %w", path, err)
	}
	return nil
}
