package template

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"report_wrapper/internal/storage"
	"report_wrapper/internal/usecase/repository"
)

// Loader читает исходники шаблонов из хранилища.
type Loader struct {
	storage repository.TemplateStorage
}

// NewLoader creates a loader over the template storage.
func NewLoader(storage repository.TemplateStorage) *Loader {
	return &Loader{storage: storage}
}

// Read returns the raw template source stored under key.
func (l *Loader) Read(ctx context.Context, key string) ([]byte, error) {
	rc, err := l.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", key, err)
	}
	return data, nil
}

// Lister lists keys under a prefix.
type Lister interface {
	List(ctx context.Context, prefix string) ([]storage.FileInfo, error)
}

// ListTemplates returns template source keys under prefix, skipping compiled artifacts.
func ListTemplates(ctx context.Context, l Lister, prefix string) ([]string, error) {
	files, err := l.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f.Key, CompiledSuffix) {
			continue
		}
		if strings.HasSuffix(f.Key, ".yaml") || strings.HasSuffix(f.Key, ".yml") {
			keys = append(keys, f.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
