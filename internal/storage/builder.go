package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"report_wrapper/internal/config"

	"github.com/sirupsen/logrus"
)

// StorageConfig общая конфигурация хранилища
type StorageConfig struct {
	Type       string        `json:"type"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// S3Config конфигурация S3 хранилища
type S3Config struct {
	StorageConfig
	Region         string `json:"region"`
	Bucket         string `json:"bucket"`
	Endpoint       string `json:"endpoint,omitempty"`
	AccessKey      string `json:"access_key"`
	SecretKey      string `json:"secret_key"`
	ForcePathStyle bool   `json:"force_path_style"`
}

// LocalConfig конфигурация локального хранилища
type LocalConfig struct {
	StorageConfig
	BasePath string `json:"base_path"`
}

// StorageBuilder строитель для конфигурации хранилища
type StorageBuilder struct {
	config config.Config
	logger *logrus.Logger
}

// NewStorageBuilder создает новый строитель хранилища
func NewStorageBuilder(cfg config.Config, logger *logrus.Logger) *StorageBuilder {
	return &StorageBuilder{
		config: cfg,
		logger: logger,
	}
}

// Build создает хранилище на основе конфигурации
func (b *StorageBuilder) Build() (Storage, error) {
	switch b.config.Storage.Type {
	case StorageTypeS3:
		storage, err := NewS3Storage(b.buildS3Config(), b.logger)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания S3 хранилища: %w", err)
		}
		return b.wrapWithMiddleware(storage), nil

	case StorageTypeLocal:
		localConfig, err := b.buildLocalConfig()
		if err != nil {
			return nil, err
		}
		storage, err := NewLocalStorage(localConfig, b.logger)
		if err != nil {
			return nil, fmt.Errorf("ошибка создания локального хранилища: %w", err)
		}
		return b.wrapWithMiddleware(storage), nil

	default:
		return nil, fmt.Errorf("неподдерживаемый тип хранилища: %s", b.config.Storage.Type)
	}
}

// buildS3Config создает конфигурацию S3
func (b *StorageBuilder) buildS3Config() S3Config {
	return S3Config{
		StorageConfig: StorageConfig{
			Type:       StorageTypeS3,
			MaxRetries: DefaultMaxRetries,
			RetryDelay: DefaultRetryDelay,
		},
		Region:         b.config.Storage.S3.Region,
		Bucket:         b.config.Storage.S3.Bucket,
		Endpoint:       b.config.Storage.S3.Endpoint,
		AccessKey:      b.config.Storage.S3.AccessKey,
		SecretKey:      b.config.Storage.S3.SecretKey,
		ForcePathStyle: true,
	}
}

// buildLocalConfig создает конфигурацию локального хранилища
func (b *StorageBuilder) buildLocalConfig() (LocalConfig, error) {
	basePath, err := filepath.Abs(b.config.Storage.BasePath)
	if err != nil {
		return LocalConfig{}, fmt.Errorf("ошибка определения базового пути: %w", err)
	}
	return LocalConfig{
		StorageConfig: StorageConfig{
			Type:       StorageTypeLocal,
			MaxRetries: DefaultMaxRetries,
			RetryDelay: DefaultRetryDelay,
		},
		BasePath: basePath,
	}, nil
}

// wrapWithMiddleware оборачивает хранилище в middleware
func (b *StorageBuilder) wrapWithMiddleware(storage Storage) Storage {
	if b.logger != nil {
		storage = NewLoggingMiddleware(storage, b.logger)
	}

	storage = NewRetryMiddleware(storage, DefaultMaxRetries, DefaultRetryDelay, b.logger)

	return NewValidationMiddleware(storage)
}

// NewStorageFromConfig создает хранилище из конфигурации
func NewStorageFromConfig(cfg config.Config, logger *logrus.Logger) (Storage, error) {
	return NewStorageBuilder(cfg, logger).Build()
}
