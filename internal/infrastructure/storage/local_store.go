package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore persists uploaded documents on the local filesystem under a
// single base directory. Stored paths are relative to that directory so the
// base can move between environments.
type LocalStore struct {
	baseDir string
	logger  *slog.Logger
}

func NewLocalStore(baseDir string, logger *slog.Logger) (*LocalStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %q: %w", baseDir, err)
	}
	return &LocalStore{
		baseDir: baseDir,
		logger:  logger.With("component", "LocalStore"),
	}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	relPath := fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeName(name))
	fullPath := filepath.Join(s.baseDir, relPath)

	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %q: %w", relPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to write file %q: %w", relPath, err)
	}

	s.logger.Debug("Stored document.", "path", relPath)
	return relPath, nil
}

func (s *LocalStore) Open(path string) (io.ReadCloser, error) {
	cleaned := filepath.Clean(path)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return nil, fmt.Errorf("invalid document path %q", path)
	}
	f, err := os.Open(filepath.Join(s.baseDir, cleaned))
	if err != nil {
		return nil, fmt.Errorf("failed to open document %q: %w", path, err)
	}
	return f, nil
}

func sanitizeName(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	return base
}
