package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// CompiledSuffix is appended to the source key of a compiled artifact.
const CompiledSuffix = ".compiled.yaml"

// keyRole определяет, чем является ключ: исходником шаблона или артефактом
func keyRole(key string) string {
	switch {
	case strings.HasSuffix(key, CompiledSuffix):
		return "artifact"
	case strings.HasSuffix(key, ".yaml"), strings.HasSuffix(key, ".yml"):
		return "template"
	default:
		return "file"
	}
}

// LoggingMiddleware пишет в лог обращения к шаблонам и артефактам
type LoggingMiddleware struct {
	storage Storage
	logger  *logrus.Logger
}

// NewLoggingMiddleware создает новый logging middleware
func NewLoggingMiddleware(storage Storage, logger *logrus.Logger) Storage {
	return &LoggingMiddleware{
		storage: storage,
		logger:  logger,
	}
}

// track логирует результат операции над ключом.
// Отсутствующий шаблон пишется как Warn, остальные ошибки как Error.
func (m *LoggingMiddleware) track(operation, key string, start time.Time, err error) {
	entry := m.logger.WithFields(logrus.Fields{
		"operation":  operation,
		keyRole(key): key,
		"duration":   time.Since(start),
	})
	switch {
	case err == nil:
		entry.Debug("Операция с хранилищем выполнена")
	case errors.Is(err, ErrNotFound):
		entry.WithError(err).Warn("Файл не найден в хранилище")
	default:
		entry.WithError(err).Error("Ошибка операции с хранилищем")
	}
}

func (m *LoggingMiddleware) Save(ctx context.Context, key string, reader io.Reader) error {
	start := time.Now()
	err := m.storage.Save(ctx, key, reader)
	m.track("save", key, start, err)
	return err
}

func (m *LoggingMiddleware) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	reader, err := m.storage.Get(ctx, key)
	m.track("get", key, start, err)
	return reader, err
}

func (m *LoggingMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	return m.storage.Exists(ctx, key)
}

func (m *LoggingMiddleware) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	start := time.Now()
	meta, err := m.storage.GetMetadata(ctx, key)
	m.track("metadata", key, start, err)
	return meta, err
}

func (m *LoggingMiddleware) GetURL(ctx context.Context, key string) (string, error) {
	url, err := m.storage.GetURL(ctx, key)
	if err == nil {
		m.logger.WithFields(logrus.Fields{
			keyRole(key): key,
			"location":   url,
		}).Debug("Адрес файла получен")
	}
	return url, err
}

// List логирует число найденных ключей
func (m *LoggingMiddleware) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	start := time.Now()
	files, err := m.storage.List(ctx, prefix)
	entry := m.logger.WithFields(logrus.Fields{
		"operation": "list",
		"prefix":    prefix,
		"duration":  time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Error("Ошибка получения списка шаблонов")
	} else {
		entry.WithField("count", len(files)).Debug("Список шаблонов получен")
	}
	return files, err
}

func (m *LoggingMiddleware) JoinPath(elem ...string) string {
	return m.storage.JoinPath(elem...)
}

func (m *LoggingMiddleware) ValidateKey(key string) error {
	return m.storage.ValidateKey(key)
}

// RetryMiddleware добавляет retry логику к операциям хранилища
type RetryMiddleware struct {
	storage    Storage
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewRetryMiddleware создает новый retry middleware
func NewRetryMiddleware(storage Storage, maxRetries int, retryDelay time.Duration, logger *logrus.Logger) Storage {
	return &RetryMiddleware{
		storage:    storage,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Save повторяет сохранение, только если поток можно перемотать
func (m *RetryMiddleware) Save(ctx context.Context, key string, reader io.Reader) error {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return m.storage.Save(ctx, key, reader)
	}
	return m.retryOperation(ctx, "save", key, func() error {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return err
		}
		return m.storage.Save(ctx, key, reader)
	})
}

// Get выполняет операцию получения с retry
func (m *RetryMiddleware) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var result io.ReadCloser
	err := m.retryOperation(ctx, "get", key, func() error {
		var err error
		result, err = m.storage.Get(ctx, key)
		return err
	})
	return result, err
}

// retryOperation выполняет операцию с retry логикой
func (m *RetryMiddleware) retryOperation(ctx context.Context, operation, key string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !m.shouldRetry(lastErr) {
			break
		}

		if attempt < m.maxRetries {
			if m.logger != nil {
				m.logger.WithFields(logrus.Fields{
					"operation":   operation,
					keyRole(key):  key,
					"attempt":     attempt + 1,
					"max_retries": m.maxRetries,
				}).WithError(lastErr).Warn("Повтор операции после ошибки")
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.retryDelay):
			}
		}
	}

	return lastErr
}

// permanentErrors не исправляются повтором
var permanentErrors = []error{
	ErrNotFound,
	ErrIsDir,
	fs.ErrPermission,
	context.Canceled,
	context.DeadlineExceeded,
}

func (m *RetryMiddleware) shouldRetry(err error) bool {
	for _, target := range permanentErrors {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

func (m *RetryMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	return m.storage.Exists(ctx, key)
}

func (m *RetryMiddleware) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	return m.storage.GetMetadata(ctx, key)
}

func (m *RetryMiddleware) GetURL(ctx context.Context, key string) (string, error) {
	return m.storage.GetURL(ctx, key)
}

func (m *RetryMiddleware) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	return m.storage.List(ctx, prefix)
}

func (m *RetryMiddleware) JoinPath(elem ...string) string {
	return m.storage.JoinPath(elem...)
}

func (m *RetryMiddleware) ValidateKey(key string) error {
	return m.storage.ValidateKey(key)
}

// ValidationMiddleware проверяет ключи перед обращением к хранилищу
type ValidationMiddleware struct {
	storage Storage
}

// NewValidationMiddleware создает новый validation middleware
func NewValidationMiddleware(storage Storage) Storage {
	return &ValidationMiddleware{storage: storage}
}

func (m *ValidationMiddleware) validateKey(key string) error {
	if err := m.storage.ValidateKey(key); err != nil {
		return fmt.Errorf("неверный ключ %q: %w", key, err)
	}
	return nil
}

func (m *ValidationMiddleware) Save(ctx context.Context, key string, reader io.Reader) error {
	if err := m.validateKey(key); err != nil {
		return err
	}
	return m.storage.Save(ctx, key, reader)
}

func (m *ValidationMiddleware) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := m.validateKey(key); err != nil {
		return nil, err
	}
	return m.storage.Get(ctx, key)
}

func (m *ValidationMiddleware) Exists(ctx context.Context, key string) (bool, error) {
	if err := m.validateKey(key); err != nil {
		return false, err
	}
	return m.storage.Exists(ctx, key)
}

func (m *ValidationMiddleware) GetMetadata(ctx context.Context, key string) (*FileMetadata, error) {
	if err := m.validateKey(key); err != nil {
		return nil, err
	}
	return m.storage.GetMetadata(ctx, key)
}

func (m *ValidationMiddleware) GetURL(ctx context.Context, key string) (string, error) {
	if err := m.validateKey(key); err != nil {
		return "", err
	}
	return m.storage.GetURL(ctx, key)
}

func (m *ValidationMiddleware) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	return m.storage.List(ctx, prefix)
}

func (m *ValidationMiddleware) JoinPath(elem ...string) string {
	return m.storage.JoinPath(elem...)
}

func (m *ValidationMiddleware) ValidateKey(key string) error {
	return m.storage.ValidateKey(key)
}
