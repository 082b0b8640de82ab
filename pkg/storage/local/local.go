package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

var ErrNotFound = errors.New("file not found")

// LocalStorage keeps artifacts as files in a single private directory.
// File ids are random; the uploader's filename only contributes its extension.
type LocalStorage struct {
	dir    string
	logger logger.Logger
}

func New(dir string, log logger.Logger) (*LocalStorage, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "policy-decoder-uploads")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, logger: log}, nil
}

// Dir returns the backing directory.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Store implements Storage.Store
func (s *LocalStorage) Store(ctx context.Context, reader io.Reader, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString() + safeExt(filename)
	path := filepath.Join(s.dir, id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		s.remove(path)
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	if err := f.Close(); err != nil {
		s.remove(path)
		return "", fmt.Errorf("failed to store file: %w", err)
	}

	s.logger.Debug("Stored upload", logger.String("fileId", id))
	return id, nil
}

// Get implements Storage.Get
func (s *LocalStorage) Get(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(fileID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// Delete implements Storage.Delete
func (s *LocalStorage) Delete(_ context.Context, fileID string) error {
	path, err := s.path(fileID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// CleanupBefore removes artifacts last modified before threshold and
// returns how many were removed.
func (s *LocalStorage) CleanupBefore(ctx context.Context, threshold time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list upload dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// deleted concurrently
			continue
		}
		if !info.ModTime().Before(threshold) {
			continue
		}
		if err := s.Delete(ctx, entry.Name()); err != nil {
			s.logger.Warn("Failed to delete expired upload",
				logger.String("fileId", entry.Name()),
				logger.Error(err),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Deleted expired uploads",
			logger.Int("count", removed),
			logger.Time("threshold", threshold),
		)
	}
	return removed, nil
}

func (s *LocalStorage) path(fileID string) (string, error) {
	if fileID == "" || fileID != filepath.Base(fileID) || strings.HasPrefix(fileID, ".") {
		return "", fmt.Errorf("%w: invalid file id %q", ErrNotFound, fileID)
	}
	return filepath.Join(s.dir, fileID), nil
}

func (s *LocalStorage) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove partial upload", logger.Error(err))
	}
}

// safeExt keeps a short alphanumeric extension and drops anything else.
func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
