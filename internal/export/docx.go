package export

import (
	"context"
	"io"

	"report_wrapper/internal/domain/report"

	"github.com/fumiama/go-docx"
)

// DOCXExporter writes a Word document with one table per report page.
type DOCXExporter struct{}

// Export builds the document and writes it to w.
func (DOCXExporter) Export(ctx context.Context, p *report.Print, w io.Writer) error {
	doc := docx.New().WithDefaultTheme().WithA4Page()

	doc.AddParagraph().Justification("center").AddText(reportTitle(p)).Bold().Size("32")

	for i, page := range p.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}
		if page.Header != "" {
			doc.AddParagraph().AddText(page.Header)
		}

		tbl := doc.AddTable(len(page.Rows)+1, len(p.Columns), 0, nil)
		for j, col := range p.Columns {
			tbl.TableRows[0].TableCells[j].AddParagraph().
				Justification("center").
				AddText(columnLabel(col, j)).Bold()
		}
		for r, row := range page.Rows {
			for j, cell := range row {
				tbl.TableRows[r+1].TableCells[j].AddParagraph().
					Justification(docxAlign(p.Columns[j].Align)).
					AddText(cell.Text)
			}
		}

		if page.Footer != "" {
			doc.AddParagraph().Justification("center").AddText(page.Footer).Italic().Size("16")
		}
	}

	if p.Summary != "" {
		doc.AddParagraph().AddText(p.Summary).Bold()
	}

	_, err := doc.WriteTo(w)
	return err
}

func (DOCXExporter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (DOCXExporter) Extension() string { return "docx" }

func docxAlign(a report.Align) string {
	switch a {
	case report.AlignCenter:
		return "center"
	case report.AlignRight:
		return "right"
	default:
		return "left"
	}
}
