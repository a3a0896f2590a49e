package storage

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps media objects on the local filesystem. Intended for
// development and the one-shot CLI; production deployments use S3.
type LocalStore struct {
	basePath string
}

// NewLocalStore creates a store rooted at basePath.
func NewLocalStore(basePath string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath}, nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if strings.Contains(cleanPath, "..") || filepath.IsAbs(cleanPath) {
		return "", fmt.Errorf("invalid path %q", path)
	}
	return filepath.Join(s.basePath, cleanPath), nil
}

// Download implements ObjectStore. The content type is sniffed from the
// leading bytes since the filesystem stores none.
func (s *LocalStore) Download(ctx context.Context, path string) ([]byte, string, error) {
	_ = ctx

	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, "", fmt.Errorf("read object: %w", err)
	}

	return data, http.DetectContentType(data), nil
}

// Upload implements ObjectStore.
func (s *LocalStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	_ = ctx
	_ = contentType

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}

	return nil
}

// Delete implements ObjectStore.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	_ = ctx

	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("delete object: %w", err)
	}

	return nil
}

var _ ObjectStore = (*LocalStore)(nil)
