package template

import (
	"context"
	"errors"
	"fmt"

	"report_wrapper/internal/usecase/repository"
)

// PlaceholderRecords is the number of empty records used when there is no connection.
const PlaceholderRecords = 50

// SourceKind tells which variant a DataSource holds.
type SourceKind int

const (
	SourceLive SourceKind = iota
	SourceEmpty
)

func (k SourceKind) String() string {
	if k == SourceEmpty {
		return "empty"
	}
	return "live"
}

// DataSource is either a live query executor or a number of empty records.
// It is chosen once before filling.
type DataSource struct {
	kind     SourceKind
	executor repository.QueryExecutor
	count    int
}

// Live returns a source that runs the template query on exec.
func Live(exec repository.QueryExecutor) DataSource {
	return DataSource{kind: SourceLive, executor: exec}
}

// Empty returns a source of count records whose fields are all nil.
func Empty(count int) DataSource {
	if count < 0 {
		count = 0
	}
	return DataSource{kind: SourceEmpty, count: count}
}

// Kind returns the variant.
func (d DataSource) Kind() SourceKind { return d.kind }

// Count returns the record count of an empty source.
func (d DataSource) Count() int { return d.count }

// records загружает записи с полями, приведенными к объявленным типам
func (d DataSource) records(ctx context.Context, c *Compiled, params map[string]any) ([]map[string]any, error) {
	fields := c.Definition.Fields

	if d.kind == SourceEmpty {
		out := make([]map[string]any, d.count)
		for i := range out {
			rec := make(map[string]any, len(fields))
			for _, f := range fields {
				rec[f.Name] = nil
			}
			out[i] = rec
		}
		return out, nil
	}

	if d.executor == nil {
		return nil, errors.New("live data source without executor")
	}
	if c.Query.Empty() {
		return nil, errors.New("template has no query")
	}

	args, err := c.Query.Args(params)
	if err != nil {
		return nil, err
	}
	cols, rows, err := d.executor.Execute(ctx, c.Query.SQL, args...)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(cols))
	for _, col := range cols {
		present[col] = true
	}
	for _, f := range fields {
		if !present[f.Name] {
			return nil, fmt.Errorf("field %q is missing from the query result", f.Name)
		}
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(fields))
		for _, f := range fields {
			v, err := Coerce(f.Type, row[f.Name])
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i+1, f.Name, err)
			}
			rec[f.Name] = v
		}
		out[i] = rec
	}
	return out, nil
}
