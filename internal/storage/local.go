package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vbhandari/MgmtSays/internal/rag/interfaces"
	"github.com/vbhandari/MgmtSays/pkg/logger"
)

var _ interfaces.Storage = (*LocalStorage)(nil)

// LocalStorage keeps raw document bytes on the local filesystem, mirroring
// the object-store layout of companyID/uuid_filename under a base directory.
// Intended for development setups without an object store.
type LocalStorage struct {
	baseDir string
	log     *logger.Logger
}

// NewLocalStorage creates filesystem storage rooted at baseDir.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory '%s': %w", baseDir, err)
	}
	return &LocalStorage{
		baseDir: baseDir,
		log:     logger.New("storage.local"),
	}, nil
}

// Save writes the file bytes and returns the relative path used as the
// document's storage reference.
func (s *LocalStorage) Save(_ context.Context, content []byte, filename, companyID string) (string, error) {
	relPath := filepath.Join(companyID, uuid.NewString()+"_"+filepath.Base(filename))

	fullPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for '%s': %w", relPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write file '%s': %w", relPath, err)
	}

	s.log.WithField("path", relPath).WithField("size", len(content)).Debug("stored document")
	return relPath, nil
}

// Read returns the full content of a stored file.
func (s *LocalStorage) Read(_ context.Context, path string) ([]byte, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}
	return content, nil
}

// Delete removes a stored file.
func (s *LocalStorage) Delete(_ context.Context, path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to delete file '%s': %w", path, err)
	}
	return nil
}

// resolve joins the path under baseDir and rejects traversal outside it.
func (s *LocalStorage) resolve(path string) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.Clean("/"+path))
	if !strings.HasPrefix(fullPath, filepath.Clean(s.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage path '%s' escapes the base directory", path)
	}
	return fullPath, nil
}
