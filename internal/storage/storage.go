package storage

import (
	"context"
	"io"
	"time"
)

const (
	// Типы хранилищ
	StorageTypeLocal = "local"
	StorageTypeS3    = "s3"

	// Настройки retry
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// Storage интерфейс хранилища шаблонов отчетов и скомпилированных артефактов.
type Storage interface {
	// Основные операции
	Save(ctx context.Context, key string, reader io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)

	// Метаданные
	GetMetadata(ctx context.Context, key string) (*FileMetadata, error)

	// Работа с URL
	GetURL(ctx context.Context, key string) (string, error)

	// Утилиты
	JoinPath(elem ...string) string
	ValidateKey(key string) error

	List(ctx context.Context, prefix string) ([]FileInfo, error)
}

// FileMetadata метаданные файла
type FileMetadata struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
	ContentType  string            `json:"content_type"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// FileInfo информация о файле
type FileInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	IsDir        bool      `json:"is_dir"`
}
