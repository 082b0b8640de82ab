package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/storage/local"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
)

// ErrNotFound is returned by Get for an unknown file id.
var ErrNotFound = local.ErrNotFound

// Storage holds upload artifacts for the short time between upload and
// extraction. Delete is idempotent.
type Storage interface {
	// Store 存储文件
	Store(ctx context.Context, reader io.Reader, filename string) (string, error)
	// Get 获取文件
	Get(ctx context.Context, fileID string) (io.ReadCloser, error)
	// Delete 删除文件; deleting a missing file is not an error.
	Delete(ctx context.Context, fileID string) error
	// CleanupBefore 清理过期文件
	CleanupBefore(ctx context.Context, threshold time.Time) (int, error)
}

// Config selects and configures a backend.
type Config struct {
	Type StorageType
	Dir  string
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(cfg Config, log logger.Logger) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return local.New(cfg.Dir, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// IsNotFound reports whether err means the artifact does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
