package query

import (
	"fmt"
	"regexp"
	"strings"
)

var paramRef = regexp.MustCompile(`\$P\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Query encapsulates SQL statement that should be executed to fill the report.
// Parameter references are replaced by positional placeholders.
type Query struct {
	SQL    string
	Params []string
}

// Parse replaces $P{name} references in src with "?" placeholders.
func Parse(src string) Query {
	var names []string
	sql := paramRef.ReplaceAllStringFunc(src, func(m string) string {
		names = append(names, paramRef.FindStringSubmatch(m)[1])
		return "?"
	})
	return Query{SQL: strings.TrimSpace(sql), Params: names}
}

// Empty reports whether the query has no statement.
func (q Query) Empty() bool {
	return q.SQL == ""
}

// Args returns the placeholder arguments in order.
func (q Query) Args(values map[string]any) ([]any, error) {
	args := make([]any, len(q.Params))
	for i, name := range q.Params {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing value for query parameter %q", name)
		}
		args[i] = v
	}
	return args, nil
}

// References returns the distinct parameter names referenced by src.
func References(src string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range paramRef.FindAllStringSubmatch(src, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
