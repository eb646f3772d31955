package export

import (
	"context"
	"fmt"
	"io"

	"report_wrapper/internal/domain/report"
)

// Exporter renders a filled report into a document format.
type Exporter interface {
	Export(ctx context.Context, p *report.Print, w io.Writer) error
	MimeType() string
	Extension() string
}

// New returns the exporter for format. XLS is served by the XLSX exporter.
func New(format report.Format) (Exporter, error) {
	switch format {
	case report.FormatPDF:
		return NewPDFExporter(), nil
	case report.FormatCSV:
		return CSVExporter{}, nil
	case report.FormatXLS, report.FormatXLSX:
		return NewXLSXExporter(DefaultXLSXConfig()), nil
	case report.FormatXHTML:
		return NewXHTMLExporter(), nil
	case report.FormatDOCX:
		return DOCXExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// CountingWriter counts bytes written through it.
type CountingWriter struct {
	W     io.Writer
	Count int64
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.Count += int64(n)
	return n, err
}

func columnLabel(col report.Column, i int) string {
	if col.Header != "" {
		return col.Header
	}
	return fmt.Sprintf("Column %d", i+1)
}

func reportTitle(p *report.Print) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}
