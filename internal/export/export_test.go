package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"report_wrapper/internal/domain/report"

	"github.com/fumiama/go-docx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func samplePrint() *report.Print {
	hired := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	return &report.Print{
		Name:  "employees",
		Title: "Employees <sales>",
		Columns: []report.Column{
			{Header: "ID", Width: 10, Align: report.AlignRight},
			{Header: "Name", Width: 40},
			{Header: "Hired", Width: 20},
		},
		Pages: []*report.Page{
			{
				Number: 1,
				Header: "Department sales",
				Rows: []report.Row{
					{{Value: int64(1), Text: "1"}, {Value: "Anna", Text: "Anna"}, {Value: hired, Text: "2020-01-15"}},
					{{Value: int64(2), Text: "2"}, {Value: "Boris, Jr.", Text: "Boris, Jr."}, {Value: nil, Text: ""}},
				},
				Footer: "Page 1 of 2",
			},
			{
				Number: 2,
				Rows: []report.Row{
					{{Value: int64(3), Text: "3"}, {Value: "<b>Vera</b>", Text: "<b>Vera</b>"}, {Value: hired, Text: "2020-01-15"}},
				},
				Footer: "Page 2 of 2",
			},
		},
		Summary: "Total: 3",
		Records: 3,
	}
}

func TestNew(t *testing.T) {
	for _, f := range report.Formats {
		e, err := New(f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, e.MimeType())
		assert.NotEmpty(t, e.Extension())
	}

	xls, _ := New(report.FormatXLS)
	xlsx, _ := New(report.FormatXLSX)
	assert.Equal(t, xlsx, xls)

	_, err := New(report.Format("ODT"))
	assert.Error(t, err)
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVExporter{}.Export(context.Background(), samplePrint(), &buf))

	want := "ID,Name,Hired\n" +
		"1,Anna,2020-01-15\n" +
		"2,\"Boris, Jr.\",\n" +
		"3,<b>Vera</b>,2020-01-15\n"
	assert.Equal(t, want, buf.String())
}

func TestPDFExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(context.Background(), samplePrint(), &buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "%%EOF")
}

func TestPDFExporterUnicodeText(t *testing.T) {
	p := samplePrint()
	p.Title = "Сотрудники отдела продаж"
	p.Pages[0].Header = "Отдел: продажи"
	p.Pages[0].Rows[0][1] = report.Cell{Value: "Анна Ёлкина", Text: "Анна Ёлкина"}
	p.Summary = "Итого: 3 €"

	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(context.Background(), p, &buf))

	out := buf.String()
	assert.Contains(t, out, "/Subtype /Type0")
	assert.Contains(t, out, "/Encoding /Identity-H")
	assert.NotContains(t, out, "/BaseFont /Helvetica")
}

func TestPDFExporterLandscape(t *testing.T) {
	p := samplePrint()
	p.Orientation = report.Landscape

	var buf bytes.Buffer
	require.NoError(t, NewPDFExporter().Export(context.Background(), p, &buf))
	assert.NotZero(t, buf.Len())
}

func exportXLSX(t *testing.T, cfg XLSXConfig, p *report.Print) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, NewXLSXExporter(cfg).Export(context.Background(), p, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestXLSXExporterDefaults(t *testing.T) {
	f := exportXLSX(t, DefaultXLSXConfig(), samplePrint())

	assert.Equal(t, []string{"employees"}, f.GetSheetList())

	rows, err := f.GetRows("employees")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Employees <sales>", rows[0][0])
	assert.Equal(t, []string{"ID", "Name", "Hired"}, rows[1])
	assert.Equal(t, "Anna", rows[2][1])
	assert.Equal(t, "Total: 3", rows[5][0])

	typ, err := f.GetCellType("employees", "A3")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)

	merged, err := f.GetMergeCells("employees")
	require.NoError(t, err)
	require.NotEmpty(t, merged)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "C1", merged[0].GetEndAxis())
}

func TestXLSXExporterPolicyFlags(t *testing.T) {
	cfg := DefaultXLSXConfig()
	cfg.OnePagePerSheet = true
	cfg.DetectCellType = false
	cfg.RemoveEmptySpaceBetweenColumns = false

	f := exportXLSX(t, cfg, samplePrint())
	assert.Equal(t, []string{"Page 1", "Page 2"}, f.GetSheetList())

	v, err := f.GetCellValue("Page 1", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Name", v)

	typ, err := f.GetCellType("Page 1", "A3")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, typ)

	v, err = f.GetCellValue("Page 2", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", v)
}

func TestXLSXExporterSpacerRows(t *testing.T) {
	cfg := DefaultXLSXConfig()
	cfg.RemoveEmptySpaceBetweenRows = false

	f := exportXLSX(t, cfg, samplePrint())
	rows, err := f.GetRows("employees")
	require.NoError(t, err)
	// title, header, 2 rows, spacer, 1 row, spacer, summary
	require.Len(t, rows, 8)
	assert.Empty(t, rows[4])
	assert.Equal(t, "Total: 3", rows[7][0])
}

func TestXLSXExporterCollapseRowSpan(t *testing.T) {
	p := samplePrint()
	p.Pages[0].Rows[0][1] = report.Cell{Value: "Anna\nMaria", Text: "Anna\nMaria"}

	cfg := DefaultXLSXConfig()
	cfg.CollapseRowSpan = true
	f := exportXLSX(t, cfg, p)

	v, err := f.GetCellValue("employees", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Anna Maria", v)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "a_b_c", sheetName("a/b?c"))
	assert.Equal(t, "Report", sheetName("  "))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), maxSheetName)
}

func TestXHTMLExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXHTMLExporter().Export(context.Background(), samplePrint(), &buf))

	out := buf.String()
	assert.Contains(t, out, "XHTML 1.0 Strict")
	assert.Contains(t, out, "Employees &lt;sales&gt;")
	assert.Contains(t, out, "&lt;b&gt;Vera&lt;/b&gt;")
	assert.NotContains(t, out, "<b>Vera</b>")
	assert.Contains(t, out, `id="page-2"`)
	assert.Contains(t, out, `<td class="right">1</td>`)
	assert.Contains(t, out, "Total: 3")
}

func TestXHTMLExporterEmptyPage(t *testing.T) {
	p := samplePrint()
	p.Pages = []*report.Page{{Number: 1, Footer: "Page 1 of 1"}}
	p.Records = 0

	var buf bytes.Buffer
	require.NoError(t, NewXHTMLExporter().Export(context.Background(), p, &buf))

	out := buf.String()
	assert.Contains(t, out, `<tbody>
<tr><td class="empty" colspan="3"></td></tr>
</tbody>`)

	dec := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
}

func TestDOCXExporter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DOCXExporter{}.Export(context.Background(), samplePrint(), &buf))

	data := buf.Bytes()
	_, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var document string
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			b, _ := io.ReadAll(rc)
			rc.Close()
			document = string(b)
		}
	}
	assert.Contains(t, document, "Anna")
	assert.Contains(t, document, "Total: 3")
}

func TestExportersHonorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, f := range []report.Format{report.FormatPDF, report.FormatCSV, report.FormatXLSX, report.FormatXHTML, report.FormatDOCX} {
		e, err := New(f)
		require.NoError(t, err)
		assert.ErrorIs(t, e.Export(ctx, samplePrint(), io.Discard), context.Canceled, f)
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf}
	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("de"))
	assert.Equal(t, int64(5), cw.Count)
}
