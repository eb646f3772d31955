package sql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Executor runs report queries on a gorm connection and satisfies
// repository.QueryExecutor.
type Executor struct {
	DB *gorm.DB
}

// NewExecutor wraps an open connection.
func NewExecutor(db *gorm.DB) *Executor {
	return &Executor{DB: db}
}

// Execute executes a query and returns the column names and rows as a slice of map.
func (e *Executor) Execute(ctx context.Context, query string, args ...any) ([]string, []map[string]any, error) {
	rows, err := e.DB.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range ptrs {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		rowMap := make(map[string]any, len(cols))
		for i, col := range cols {
			// драйверы отдают текст как []byte
			if b, ok := vals[i].([]byte); ok {
				rowMap[col] = string(b)
				continue
			}
			rowMap[col] = vals[i]
		}
		results = append(results, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, results, nil
}
