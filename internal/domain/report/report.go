package report

import (
	"fmt"
	"strings"
)

// Format обозначает поддерживаемые форматы выгрузки.
type Format string

const (
	FormatPDF   Format = "PDF"
	FormatCSV   Format = "CSV"
	FormatXLS   Format = "XLS"
	FormatXLSX  Format = "XLSX"
	FormatXHTML Format = "XHTML"
	FormatDOCX  Format = "DOCX"
)

// Formats lists every format accepted by ParseFormat.
var Formats = []Format{FormatPDF, FormatCSV, FormatXLS, FormatXLSX, FormatXHTML, FormatDOCX}

// ParseFormat разбирает имя формата без учета регистра.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q", name)
}

// Template содержит имя отчёта и ключ исходного описания шаблона.
type Template struct {
	Name   string
	Source string
}

// NewTemplate returns a template, deriving the name from the source when empty.
func NewTemplate(name, source string) Template {
	if name == "" {
		name = baseName(source)
	}
	return Template{Name: name, Source: source}
}

// Parameters содержит значения параметров отчёта по имени.
type Parameters map[string]any

// Clone returns a shallow copy; nil stays nil.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func baseName(source string) string {
	name := source
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
