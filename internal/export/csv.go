package export

import (
	"context"
	"encoding/csv"
	"io"

	"report_wrapper/internal/domain/report"
)

// CSVExporter writes the header row and every detail row.
type CSVExporter struct {
	Delimiter rune
}

// Export streams rows as CSV.
func (e CSVExporter) Export(ctx context.Context, p *report.Print, w io.Writer) error {
	writer := csv.NewWriter(w)
	if e.Delimiter != 0 {
		writer.Comma = e.Delimiter
	}

	headers := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		headers[i] = columnLabel(col, i)
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, page := range p.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, row := range page.Rows {
			record := make([]string, len(row))
			for i, cell := range row {
				record[i] = cell.Text
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func (CSVExporter) MimeType() string  { return "text/csv; charset=utf-8" }
func (CSVExporter) Extension() string { return "csv" }
