package export

import (
	"context"
	_ "embed"
	"io"
	"time"

	"report_wrapper/internal/domain/report"

	"github.com/go-pdf/fpdf"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
	//go:embed fonts/DejaVuSansCondensed-Oblique.ttf
	fontItalic []byte
)

const (
	pdfFont       = "DejaVu"
	pdfRowHeight  = 6.0
	pdfBaseWidth  = 15.0
	pdfFooterSize = 8.0
)

// PDFExporter renders one or more PDF pages per report page.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter creates a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Export writes the report as A4 PDF.
func (e *PDFExporter) Export(ctx context.Context, p *report.Print, w io.Writer) error {
	orientation := "P"
	if p.Orientation == report.Landscape {
		orientation = "L"
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetCreationDate(e.now())
	pdf.SetTitle(reportTitle(p), true)
	pdf.SetCreator("report-wrapper", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	// встроенный TTF, текст пишется в UTF-8 как есть
	pdf.AddUTF8FontFromBytes(pdfFont, "", fontRegular)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", fontBold)
	pdf.AddUTF8FontFromBytes(pdfFont, "I", fontItalic)
	widths := columnWidths(pdf, p.Columns)

	var current *report.Page
	pdf.SetFooterFunc(func() {
		if current == nil || current.Footer == "" {
			return
		}
		pdf.SetY(-12)
		pdf.SetFont(pdfFont, "I", pdfFooterSize)
		pdf.CellFormat(0, 5, current.Footer, "", 0, "C", false, 0, "")
	})

	for i, page := range p.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		current = page
		pdf.AddPage()

		if i == 0 {
			pdf.SetFont(pdfFont, "B", 14)
			pdf.CellFormat(0, 10, reportTitle(p), "", 1, "C", false, 0, "")
		}
		if page.Header != "" {
			pdf.SetFont(pdfFont, "", 10)
			pdf.CellFormat(0, 7, page.Header, "", 1, "L", false, 0, "")
		}

		pdf.SetFont(pdfFont, "B", 9)
		pdf.SetFillColor(220, 220, 220)
		for j, col := range p.Columns {
			pdf.CellFormat(widths[j], pdfRowHeight+1, columnLabel(col, j), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont(pdfFont, "", 9)
		for _, row := range page.Rows {
			for j, cell := range row {
				pdf.CellFormat(widths[j], pdfRowHeight, cell.Text, "1", 0, pdfAlign(p.Columns[j].Align), false, 0, "")
			}
			pdf.Ln(-1)
		}

		if i == len(p.Pages)-1 && p.Summary != "" {
			pdf.Ln(2)
			pdf.SetFont(pdfFont, "B", 10)
			pdf.CellFormat(0, 7, p.Summary, "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func (*PDFExporter) MimeType() string  { return "application/pdf" }
func (*PDFExporter) Extension() string { return "pdf" }

// columnWidths масштабирует ширины колонок под ширину страницы
func columnWidths(pdf *fpdf.Fpdf, cols []report.Column) []float64 {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	avail := pageW - left - right

	widths := make([]float64, len(cols))
	var total float64
	for i, col := range cols {
		widths[i] = col.Width
		if widths[i] <= 0 {
			widths[i] = pdfBaseWidth
		}
		total += widths[i]
	}
	if total == 0 {
		return widths
	}
	for i := range widths {
		widths[i] = widths[i] / total * avail
	}
	return widths
}

func pdfAlign(a report.Align) string {
	switch a {
	case report.AlignCenter:
		return "C"
	case report.AlignRight:
		return "R"
	default:
		return "L"
	}
}
