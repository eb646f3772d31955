package repository

import "context"

// QueryExecutor executes SQL queries and returns the column names and resulting rows.
type QueryExecutor interface {
	Execute(ctx context.Context, query string, args ...any) ([]string, []map[string]any, error)
}
