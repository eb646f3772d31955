package template

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DefaultPageSize is used when the definition does not set pageSize.
const DefaultPageSize = 40

// Типы параметров и полей шаблона
const (
	TypeInteger   = "integer"
	TypeFloat     = "float"
	TypeText      = "text"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeBoolean   = "boolean"
)

var knownTypes = map[string]bool{
	TypeInteger:   true,
	TypeFloat:     true,
	TypeText:      true,
	TypeDate:      true,
	TypeTimestamp: true,
	TypeBoolean:   true,
}

// Встроенные переменные, доступные через $V{...}
const (
	VarPageNumber  = "PAGE_NUMBER"
	VarPageCount   = "PAGE_COUNT"
	VarReportCount = "REPORT_COUNT"
	VarColumnCount = "COLUMN_COUNT"
)

var builtinVars = map[string]bool{
	VarPageNumber:  true,
	VarPageCount:   true,
	VarReportCount: true,
	VarColumnCount: true,
}

// Parameter is a declared report parameter.
type Parameter struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Field is a column of the data source row.
type Field struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Column is an output column of the detail band.
type Column struct {
	Header     string  `yaml:"header"`
	Expression string  `yaml:"expression"`
	Width      float64 `yaml:"width,omitempty"`
	Align      string  `yaml:"align,omitempty"`
}

// Definition is the YAML report template.
type Definition struct {
	Name        string      `yaml:"name"`
	Title       string      `yaml:"title,omitempty"`
	Query       string      `yaml:"query,omitempty"`
	Parameters  []Parameter `yaml:"parameters,omitempty"`
	Fields      []Field     `yaml:"fields,omitempty"`
	Columns     []Column    `yaml:"columns"`
	PageSize    int         `yaml:"pageSize,omitempty"`
	PageHeader  string      `yaml:"pageHeader,omitempty"`
	PageFooter  string      `yaml:"pageFooter,omitempty"`
	Summary     string      `yaml:"summary,omitempty"`
	Orientation string      `yaml:"orientation,omitempty"`
}

// validate проверяет структуру определения (без выражений)
func (d *Definition) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("template must declare at least one column")
	}
	switch strings.ToLower(d.Orientation) {
	case "", "portrait", "landscape":
	default:
		return fmt.Errorf("unknown orientation %q", d.Orientation)
	}
	if d.PageSize < 0 {
		return fmt.Errorf("pageSize must not be negative")
	}

	seen := make(map[string]bool)
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("parameter without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate parameter %q", p.Name)
		}
		seen[p.Name] = true
		if !knownTypes[p.Type] {
			return fmt.Errorf("parameter %q has unknown type %q", p.Name, p.Type)
		}
		if p.Default != nil {
			if _, err := Coerce(p.Type, p.Default); err != nil {
				return fmt.Errorf("parameter %q default: %w", p.Name, err)
			}
		}
	}

	seen = make(map[string]bool)
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("field without name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if !knownTypes[f.Type] {
			return fmt.Errorf("field %q has unknown type %q", f.Name, f.Type)
		}
	}

	for i, c := range d.Columns {
		if strings.TrimSpace(c.Expression) == "" {
			return fmt.Errorf("column %d has no expression", i+1)
		}
		switch strings.ToLower(c.Align) {
		case "", "left", "center", "right":
		default:
			return fmt.Errorf("column %d has unknown align %q", i+1, c.Align)
		}
	}
	return nil
}

func (d *Definition) pageSize() int {
	if d.PageSize == 0 {
		return DefaultPageSize
	}
	return d.PageSize
}

// decimal убирает ведущие нули, чтобы cast не читал "010" как восьмеричное.
// Префиксы 0x, 0o и 0b после этого перестают разбираться.
func decimal(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" && s != "" {
		trimmed = "0"
	}
	return sign + trimmed
}

// Coerce приводит значение к объявленному типу. nil остается nil.
func Coerce(typ string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok && typ != TypeText {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		v = s
	}

	switch typ {
	case TypeInteger:
		if s, ok := v.(string); ok {
			v = decimal(s)
		}
		return cast.ToInt64E(v)
	case TypeFloat:
		return cast.ToFloat64E(v)
	case TypeText:
		if t, ok := v.(time.Time); ok {
			return formatTime(t), nil
		}
		return cast.ToStringE(v)
	case TypeDate:
		t, err := cast.ToTimeE(v)
		if err != nil {
			return nil, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	case TypeTimestamp:
		return cast.ToTimeE(v)
	case TypeBoolean:
		return cast.ToBoolE(v)
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}
