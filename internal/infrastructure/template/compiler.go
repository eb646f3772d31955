package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"report_wrapper/internal/domain/query"
	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/storage"
	"report_wrapper/internal/usecase/repository"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CompiledSuffix is appended to the source key of a compiled artifact.
const CompiledSuffix = storage.CompiledSuffix

// Stage classifies where compilation failed.
type Stage string

const (
	StageRead       Stage = "read"
	StageParse      Stage = "parse"
	StageValidate   Stage = "validate"
	StageExpression Stage = "expression"
	StageQuery      Stage = "query"
	StageWrite      Stage = "write"
)

// CompileError is returned by every compilation failure.
type CompileError struct {
	Stage  Stage
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %s: %v", e.Source, e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

var refPattern = regexp.MustCompile(`\$([FPV])\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expression is one compiled band expression.
type expression struct {
	band    string
	source  string
	code    string
	program *vm.Program
}

// Compiled is a validated template with compiled expressions and bound query.
type Compiled struct {
	Definition Definition
	Source     string
	Query      query.Query

	title      *expression
	pageHeader *expression
	pageFooter *expression
	summary    *expression
	columns    []*expression
}

// Name returns the template name.
func (c *Compiled) Name() string {
	return c.Definition.Name
}

// Artifact is the serialized form of a compiled template.
type Artifact struct {
	Name        string               `yaml:"name"`
	Source      string               `yaml:"source"`
	CompiledAt  time.Time            `yaml:"compiledAt"`
	Query       string               `yaml:"query,omitempty"`
	QueryParams []string             `yaml:"queryParams,omitempty"`
	Expressions []ArtifactExpression `yaml:"expressions"`
	Definition  Definition           `yaml:"definition"`
}

// ArtifactExpression is a band expression after reference rewriting.
type ArtifactExpression struct {
	Band   string `yaml:"band"`
	Source string `yaml:"source"`
	Code   string `yaml:"code"`
}

// Artifact returns the serializable view of the compiled template.
func (c *Compiled) Artifact(compiledAt time.Time) Artifact {
	a := Artifact{
		Name:        c.Definition.Name,
		Source:      c.Source,
		CompiledAt:  compiledAt.UTC(),
		Query:       c.Query.SQL,
		QueryParams: c.Query.Params,
		Definition:  c.Definition,
	}
	for _, e := range c.expressions() {
		a.Expressions = append(a.Expressions, ArtifactExpression{Band: e.band, Source: e.source, Code: e.code})
	}
	return a
}

func (c *Compiled) expressions() []*expression {
	var out []*expression
	for _, e := range []*expression{c.title, c.pageHeader} {
		if e != nil {
			out = append(out, e)
		}
	}
	out = append(out, c.columns...)
	for _, e := range []*expression{c.pageFooter, c.summary} {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Compiler compiles report templates read from storage.
type Compiler struct {
	loader  *Loader
	storage repository.TemplateStorage
	logger  *logrus.Logger
	now     func() time.Time
}

// NewCompiler создает компилятор шаблонов
func NewCompiler(storage repository.TemplateStorage, logger *logrus.Logger) *Compiler {
	return &Compiler{
		loader:  NewLoader(storage),
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Compile reads and compiles the template source.
func (c *Compiler) Compile(ctx context.Context, tpl report.Template) (*Compiled, error) {
	data, err := c.loader.Read(ctx, tpl.Source)
	if err != nil {
		return nil, &CompileError{Stage: StageRead, Source: tpl.Source, Err: err}
	}

	compiled, err := CompileSource(tpl.Source, data)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"template": tpl.Name,
			"source":   tpl.Source,
		}).WithError(err).Debug("Ошибка компиляции шаблона")
		return nil, err
	}
	return compiled, nil
}

// CompileToStorage compiles the template, stores the artifact next to the
// source and returns the artifact location.
func (c *Compiler) CompileToStorage(ctx context.Context, tpl report.Template) (string, error) {
	compiled, err := c.Compile(ctx, tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(compiled.Artifact(c.now())); err != nil {
		return "", &CompileError{Stage: StageWrite, Source: tpl.Source, Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &CompileError{Stage: StageWrite, Source: tpl.Source, Err: err}
	}

	key := ArtifactKey(tpl.Source)
	if err := c.storage.Save(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
		return "", &CompileError{Stage: StageWrite, Source: tpl.Source, Err: err}
	}

	location, err := c.storage.GetURL(ctx, key)
	if err != nil {
		return "", &CompileError{Stage: StageWrite, Source: tpl.Source, Err: err}
	}

	c.logger.WithFields(logrus.Fields{
		"template": tpl.Name,
		"artifact": location,
	}).Info("Шаблон скомпилирован")
	return location, nil
}

// ArtifactKey returns the storage key of the compiled artifact for source.
func ArtifactKey(source string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(source, ext) {
			return strings.TrimSuffix(source, ext) + CompiledSuffix
		}
	}
	return source + CompiledSuffix
}

// CompileSource compiles a template definition held in memory.
func CompileSource(source string, data []byte) (*Compiled, error) {
	fail := func(stage Stage, err error) (*Compiled, error) {
		return nil, &CompileError{Stage: stage, Source: source, Err: err}
	}

	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return fail(StageParse, errors.New("empty template"))
		}
		return fail(StageParse, err)
	}
	if err := def.validate(); err != nil {
		return fail(StageValidate, err)
	}

	scope := newScope(&def)
	c := &Compiled{Definition: def, Source: source}

	bands := []struct {
		band string
		src  string
		dst  **expression
	}{
		{"title", def.Title, &c.title},
		{"pageHeader", def.PageHeader, &c.pageHeader},
		{"pageFooter", def.PageFooter, &c.pageFooter},
		{"summary", def.Summary, &c.summary},
	}
	for _, b := range bands {
		if strings.TrimSpace(b.src) == "" {
			continue
		}
		e, err := compileExpression(b.band, b.src, scope)
		if err != nil {
			return fail(StageExpression, err)
		}
		*b.dst = e
	}

	for i, col := range def.Columns {
		e, err := compileExpression(fmt.Sprintf("column[%d]", i+1), col.Expression, scope)
		if err != nil {
			return fail(StageExpression, err)
		}
		c.columns = append(c.columns, e)
	}

	if err := query.Validate(def.Query); err != nil {
		return fail(StageQuery, err)
	}
	for _, name := range query.References(def.Query) {
		if !scope.params[name] {
			return fail(StageQuery, fmt.Errorf("undeclared parameter %q", name))
		}
	}
	c.Query = query.Parse(def.Query)

	return c, nil
}

type scope struct {
	fields map[string]bool
	params map[string]bool
}

func newScope(def *Definition) scope {
	s := scope{fields: make(map[string]bool), params: make(map[string]bool)}
	for _, f := range def.Fields {
		s.fields[f.Name] = true
	}
	for _, p := range def.Parameters {
		s.params[p.Name] = true
	}
	return s
}

// compileExpression переписывает $F{x}/$P{x}/$V{x} в обращения к env и компилирует
func compileExpression(band, src string, s scope) (*expression, error) {
	var refErr error
	code := refPattern.ReplaceAllStringFunc(src, func(m string) string {
		sub := refPattern.FindStringSubmatch(m)
		kind, name := sub[1], sub[2]
		if refErr == nil {
			switch {
			case kind == "F" && !s.fields[name]:
				refErr = fmt.Errorf("%s: undeclared field %q", band, name)
			case kind == "P" && !s.params[name]:
				refErr = fmt.Errorf("%s: undeclared parameter %q", band, name)
			case kind == "V" && !builtinVars[name]:
				refErr = fmt.Errorf("%s: unknown variable %q", band, name)
			}
		}
		return fmt.Sprintf("%s[%q]", kind, name)
	})
	if refErr != nil {
		return nil, refErr
	}

	program, err := expr.Compile(code, expr.Env(emptyEnv()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", band, err)
	}
	return &expression{band: band, source: src, code: code, program: program}, nil
}

func emptyEnv() map[string]any {
	return map[string]any{
		"F": map[string]any{},
		"P": map[string]any{},
		"V": map[string]any{},
	}
}
