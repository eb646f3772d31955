package template

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"report_wrapper/internal/domain/report"

	"github.com/expr-lang/expr"
	"github.com/sirupsen/logrus"
)

// Filler builds a paginated report.Print from a compiled template.
type Filler struct {
	logger *logrus.Logger
}

// NewFiller создает заполнитель отчетов
func NewFiller(logger *logrus.Logger) *Filler {
	return &Filler{logger: logger}
}

// ResolveParameters merges supplied values over declared defaults and coerces
// them to the declared types. Undeclared names are ignored.
func (c *Compiled) ResolveParameters(supplied report.Parameters) (map[string]any, error) {
	out := make(map[string]any, len(c.Definition.Parameters))
	for _, p := range c.Definition.Parameters {
		raw, ok := supplied[p.Name]
		if !ok {
			raw = p.Default
		}
		v, err := Coerce(p.Type, raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		out[p.Name] = v
	}
	return out, nil
}

// Fill evaluates the template against the data source.
func (f *Filler) Fill(ctx context.Context, c *Compiled, params report.Parameters, src DataSource) (*report.Print, error) {
	resolved, err := c.ResolveParameters(params)
	if err != nil {
		return nil, err
	}

	records, err := src.records(ctx, c, resolved)
	if err != nil {
		return nil, err
	}

	def := &c.Definition
	size := def.pageSize()
	total := len(records)
	pageCount := (total + size - 1) / size
	if pageCount == 0 {
		pageCount = 1
	}

	vars := func(page, count int) map[string]any {
		return map[string]any{
			VarPageNumber:  page,
			VarPageCount:   pageCount,
			VarReportCount: count,
			VarColumnCount: len(def.Columns),
		}
	}

	out := &report.Print{
		Name:        def.Name,
		Orientation: report.Portrait,
		Records:     total,
	}
	if strings.EqualFold(def.Orientation, string(report.Landscape)) {
		out.Orientation = report.Landscape
	}
	for _, col := range def.Columns {
		out.Columns = append(out.Columns, report.Column{
			Header: col.Header,
			Width:  col.Width,
			Align:  parseAlign(col.Align),
		})
	}

	// Бэнды вне detail видят последнюю запись
	lastRecord := emptyRecord(def)
	if total > 0 {
		lastRecord = records[total-1]
	}

	out.Title = def.Name
	if c.title != nil {
		v, err := evaluate(c.title, lastRecord, resolved, vars(1, total))
		if err != nil {
			return nil, err
		}
		out.Title = formatValue(v)
	}

	for n := 1; n <= pageCount; n++ {
		page := &report.Page{Number: n}
		start := (n - 1) * size
		end := min(start+size, total)

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			row := make(report.Row, len(c.columns))
			for j, col := range c.columns {
				v, err := evaluate(col, records[i], resolved, vars(n, i+1))
				if err != nil {
					return nil, fmt.Errorf("record %d: %w", i+1, err)
				}
				row[j] = report.Cell{Value: v, Text: formatValue(v)}
			}
			page.Rows = append(page.Rows, row)
		}

		pageRecord := lastRecord
		if end > start {
			pageRecord = records[end-1]
		}
		if c.pageHeader != nil {
			v, err := evaluate(c.pageHeader, pageRecord, resolved, vars(n, end))
			if err != nil {
				return nil, err
			}
			page.Header = formatValue(v)
		}
		if c.pageFooter != nil {
			v, err := evaluate(c.pageFooter, pageRecord, resolved, vars(n, end))
			if err != nil {
				return nil, err
			}
			page.Footer = formatValue(v)
		}
		out.Pages = append(out.Pages, page)
	}

	if c.summary != nil {
		v, err := evaluate(c.summary, lastRecord, resolved, vars(pageCount, total))
		if err != nil {
			return nil, err
		}
		out.Summary = formatValue(v)
	}

	f.logger.WithFields(logrus.Fields{
		"template": def.Name,
		"source":   src.Kind().String(),
		"records":  total,
		"pages":    pageCount,
	}).Debug("Отчет заполнен")

	return out, nil
}

func evaluate(e *expression, fields, params, vars map[string]any) (any, error) {
	v, err := expr.Run(e.program, map[string]any{
		"F": fields,
		"P": params,
		"V": vars,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.band, err)
	}
	return v, nil
}

func emptyRecord(def *Definition) map[string]any {
	rec := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		rec[f.Name] = nil
	}
	return rec
}

func parseAlign(s string) report.Align {
	switch strings.ToLower(s) {
	case "center":
		return report.AlignCenter
	case "right":
		return report.AlignRight
	default:
		return report.AlignLeft
	}
}

// formatValue возвращает текстовое представление значения ячейки
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return formatTime(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
