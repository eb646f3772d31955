package template

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/logging"
	"report_wrapper/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func newTestCompiler(t *testing.T) (*Compiler, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir}, logging.Discard())
	require.NoError(t, err)
	return NewCompiler(s, logging.Discard()), dir
}

func TestCompileSource(t *testing.T) {
	c, err := CompileSource("employees.yaml", readTestdata(t, "employees.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "employees", c.Name())
	assert.Equal(t, []string{"dept"}, c.Query.Params)
	assert.True(t, strings.HasSuffix(c.Query.SQL, "WHERE dept = ? ORDER BY id"))
	assert.Len(t, c.columns, 4)
	assert.Equal(t, `"Employees of " + P["dept"]`, c.title.code)
}

func TestCompileSourceErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		stage Stage
	}{
		{"empty", "", StageParse},
		{"bad yaml", "name: [", StageParse},
		{"unknown key", "name: a\ncolumns: [{expression: '1'}]\nbogus: 1\n", StageParse},
		{"no name", "columns: [{expression: '1'}]\n", StageValidate},
		{"no columns", "name: a\n", StageValidate},
		{"unknown type", "name: a\nfields: [{name: x, type: blob}]\ncolumns: [{expression: '1'}]\n", StageValidate},
		{"duplicate field", "name: a\nfields: [{name: x, type: text}, {name: x, type: text}]\ncolumns: [{expression: '1'}]\n", StageValidate},
		{"bad default", "name: a\nparameters: [{name: n, type: integer, default: abc}]\ncolumns: [{expression: '1'}]\n", StageValidate},
		{"undeclared field", "name: a\ncolumns: [{expression: '$F{x}'}]\n", StageExpression},
		{"undeclared parameter", "name: a\ncolumns: [{expression: '$P{x}'}]\n", StageExpression},
		{"unknown variable", "name: a\ncolumns: [{expression: '$V{ROW}'}]\n", StageExpression},
		{"syntax", "name: a\ncolumns: [{expression: '1 +'}]\n", StageExpression},
		{"forbidden query", "name: a\nquery: DELETE FROM t\ncolumns: [{expression: '1'}]\n", StageQuery},
		{"query parameter", "name: a\nquery: SELECT * FROM t WHERE id = $P{id}\ncolumns: [{expression: '1'}]\n", StageQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("t.yaml", []byte(tt.src))
			require.Error(t, err)

			var cerr *CompileError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.stage, cerr.Stage)
			assert.Equal(t, "t.yaml", cerr.Source)
		})
	}
}

func TestCompilerReadFailure(t *testing.T) {
	c, _ := newTestCompiler(t)

	_, err := c.Compile(context.Background(), report.NewTemplate("", "missing.yaml"))
	var cerr *CompileError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, StageRead, cerr.Stage)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCompileToStorage(t *testing.T) {
	c, dir := newTestCompiler(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "employees.yaml"), readTestdata(t, "employees.yaml"), 0o644))

	location, err := c.CompileToStorage(context.Background(), report.NewTemplate("", "employees.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "employees.compiled.yaml")), location)

	data, err := os.ReadFile(filepath.Join(dir, "employees.compiled.yaml"))
	require.NoError(t, err)

	var artifact Artifact
	require.NoError(t, yaml.Unmarshal(data, &artifact))
	assert.Equal(t, "employees", artifact.Name)
	assert.Equal(t, []string{"dept"}, artifact.QueryParams)
	assert.Len(t, artifact.Expressions, 8)
	assert.Equal(t, "title", artifact.Expressions[0].Band)
}

func TestArtifactKey(t *testing.T) {
	assert.Equal(t, "a/b.compiled.yaml", ArtifactKey("a/b.yaml"))
	assert.Equal(t, "b.compiled.yaml", ArtifactKey("b.yml"))
	assert.Equal(t, "b.jrxml.compiled.yaml", ArtifactKey("b.jrxml"))
}

func yamlBytes(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func TestListTemplates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "a.compiled.yaml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	s, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir}, logging.Discard())
	require.NoError(t, err)

	keys, err := ListTemplates(context.Background(), s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml", "b.yaml"}, keys)
}
