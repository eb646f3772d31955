package repository

import (
	"context"
	"io"
)

// TemplateStorage provides access to template files (local disk or S3).
type TemplateStorage interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key string, reader io.Reader) error
	GetURL(ctx context.Context, key string) (string, error)
}
