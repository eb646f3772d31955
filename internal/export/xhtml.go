package export

import (
	"context"
	_ "embed"
	"io"

	"report_wrapper/internal/domain/report"

	"github.com/flosch/pongo2/v6"
)

//go:embed templates/report.xhtml
var xhtmlTemplate string

// XHTMLExporter renders an XHTML 1.0 document with one table per page.
type XHTMLExporter struct {
	tpl *pongo2.Template
}

// NewXHTMLExporter parses the embedded template.
func NewXHTMLExporter() *XHTMLExporter {
	return &XHTMLExporter{tpl: pongo2.Must(pongo2.FromString(xhtmlTemplate))}
}

type xhtmlColumn struct {
	Header string
}

type xhtmlCell struct {
	Text  string
	Align string
}

type xhtmlPage struct {
	Number int
	Header string
	Footer string
	Rows   [][]xhtmlCell
}

// Export executes the template into w. Values are autoescaped.
func (e *XHTMLExporter) Export(ctx context.Context, p *report.Print, w io.Writer) error {
	columns := make([]xhtmlColumn, len(p.Columns))
	for i, col := range p.Columns {
		columns[i] = xhtmlColumn{Header: columnLabel(col, i)}
	}

	pages := make([]xhtmlPage, 0, len(p.Pages))
	for _, page := range p.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		view := xhtmlPage{Number: page.Number, Header: page.Header, Footer: page.Footer}
		for _, row := range page.Rows {
			cells := make([]xhtmlCell, len(row))
			for j, c := range row {
				cells[j] = xhtmlCell{Text: c.Text, Align: string(p.Columns[j].Align)}
			}
			view.Rows = append(view.Rows, cells)
		}
		pages = append(pages, view)
	}

	return e.tpl.ExecuteWriter(pongo2.Context{
		"title":   reportTitle(p),
		"columns": columns,
		"pages":   pages,
		"summary": p.Summary,
	}, w)
}

func (*XHTMLExporter) MimeType() string  { return "application/xhtml+xml; charset=utf-8" }
func (*XHTMLExporter) Extension() string { return "xhtml" }
