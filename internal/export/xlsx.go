package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"report_wrapper/internal/domain/report"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetName    = 31
	defaultColWidth = 15.0
	spacerColWidth  = 2.0
	xlsxDateFormat  = "yyyy-mm-dd"
	xlsxDateTimeFmt = "yyyy-mm-dd hh:mm:ss"
	xlsxHeaderFill  = "D9D9D9"
	xlsxWhite       = "FFFFFF"
	xlsxBorderColor = "000000"
	xlsxTitleFontSz = 14
)

// XLSXConfig is the fixed spreadsheet export policy.
type XLSXConfig struct {
	// OnePagePerSheet puts every report page on its own sheet.
	OnePagePerSheet bool
	// DetectCellType writes numbers, booleans and dates as native cells
	// instead of text.
	DetectCellType bool
	// CollapseRowSpan flattens multi-line values into a single line.
	// Otherwise such cells get a wrap-text style.
	CollapseRowSpan bool
	// WhitePageBackground fills every written cell with white.
	WhitePageBackground bool
	// IgnoreGraphics drops borders and fills from the header row.
	IgnoreGraphics bool
	// RemoveEmptySpaceBetweenRows omits the blank row between report pages.
	RemoveEmptySpaceBetweenRows bool
	// RemoveEmptySpaceBetweenColumns omits the narrow spacer columns.
	RemoveEmptySpaceBetweenColumns bool
}

// DefaultXLSXConfig returns the policy used for every spreadsheet export.
func DefaultXLSXConfig() XLSXConfig {
	return XLSXConfig{
		OnePagePerSheet:                false,
		DetectCellType:                 true,
		CollapseRowSpan:                false,
		WhitePageBackground:            false,
		IgnoreGraphics:                 false,
		RemoveEmptySpaceBetweenRows:    true,
		RemoveEmptySpaceBetweenColumns: true,
	}
}

// XLSXExporter writes Office Open XML workbooks.
type XLSXExporter struct {
	Config XLSXConfig
}

// NewXLSXExporter creates an exporter with the given policy.
func NewXLSXExporter(cfg XLSXConfig) *XLSXExporter {
	return &XLSXExporter{Config: cfg}
}

func (*XLSXExporter) MimeType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (*XLSXExporter) Extension() string { return "xlsx" }

// Export builds the workbook in memory and writes it to w.
func (e *XLSXExporter) Export(ctx context.Context, p *report.Print, w io.Writer) error {
	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	if err := file.SetDocProps(&excelize.DocProperties{
		Title:   reportTitle(p),
		Creator: "report-wrapper",
	}); err != nil {
		return err
	}

	styles, err := e.buildStyles(file)
	if err != nil {
		return err
	}

	sw := &sheetWriter{file: file, cfg: e.Config, styles: styles, print: p}

	if e.Config.OnePagePerSheet {
		for i, page := range p.Pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sw.startSheet(fmt.Sprintf("Page %d", page.Number), i == 0); err != nil {
				return err
			}
			if err := sw.writePage(page); err != nil {
				return err
			}
			if i == len(p.Pages)-1 {
				if err := sw.writeSummary(); err != nil {
					return err
				}
			}
		}
	} else {
		if err := sw.startSheet(sheetName(p.Name), true); err != nil {
			return err
		}
		for i, page := range p.Pages {
			if err := ctx.Err(); err != nil {
				return err
			}
			if i > 0 && !e.Config.RemoveEmptySpaceBetweenRows {
				sw.row++
			}
			if err := sw.writePage(page); err != nil {
				return err
			}
		}
		if err := sw.writeSummary(); err != nil {
			return err
		}
	}

	_, err = file.WriteTo(w)
	return err
}

type xlsxStyles struct {
	title    int
	header   int
	text     int
	wrap     int
	date     int
	dateTime int
}

func (e *XLSXExporter) buildStyles(file *excelize.File) (*xlsxStyles, error) {
	newStyle := func(s excelize.Style) (int, error) {
		if e.Config.WhitePageBackground && len(s.Fill.Color) == 0 {
			s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{xlsxWhite}}
		}
		return file.NewStyle(&s)
	}

	dateFmt, dateTimeFmt := xlsxDateFormat, xlsxDateTimeFmt
	header := excelize.Style{Font: &excelize.Font{Bold: true}}
	if !e.Config.IgnoreGraphics {
		header.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{xlsxHeaderFill}}
		for _, side := range []string{"left", "top", "right", "bottom"} {
			header.Border = append(header.Border, excelize.Border{Type: side, Color: xlsxBorderColor, Style: 1})
		}
	}

	var s xlsxStyles
	var err error
	specs := []struct {
		dst   *int
		style excelize.Style
	}{
		{&s.title, excelize.Style{Font: &excelize.Font{Bold: true, Size: xlsxTitleFontSz}, Alignment: &excelize.Alignment{Horizontal: "center"}}},
		{&s.header, header},
		{&s.text, excelize.Style{}},
		{&s.wrap, excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}}},
		{&s.date, excelize.Style{CustomNumFmt: &dateFmt}},
		{&s.dateTime, excelize.Style{CustomNumFmt: &dateTimeFmt}},
	}
	for _, spec := range specs {
		if *spec.dst, err = newStyle(spec.style); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// sheetWriter хранит позицию записи на текущем листе
type sheetWriter struct {
	file   *excelize.File
	cfg    XLSXConfig
	styles *xlsxStyles
	print  *report.Print
	sheet  string
	row    int
}

func (s *sheetWriter) col(j int) int {
	if s.cfg.RemoveEmptySpaceBetweenColumns {
		return j + 1
	}
	return 2*j + 1
}

func (s *sheetWriter) lastCol() int {
	return s.col(len(s.print.Columns) - 1)
}

func (s *sheetWriter) startSheet(name string, first bool) error {
	if first {
		if err := s.file.SetSheetName(s.file.GetSheetName(0), name); err != nil {
			return err
		}
	} else if _, err := s.file.NewSheet(name); err != nil {
		return err
	}
	s.sheet = name
	s.row = 1

	for j, col := range s.print.Columns {
		name, err := excelize.ColumnNumberToName(s.col(j))
		if err != nil {
			return err
		}
		width := col.Width
		if width <= 0 {
			width = defaultColWidth
		}
		if err := s.file.SetColWidth(s.sheet, name, name, width); err != nil {
			return err
		}
		if !s.cfg.RemoveEmptySpaceBetweenColumns && j < len(s.print.Columns)-1 {
			spacer, err := excelize.ColumnNumberToName(s.col(j) + 1)
			if err != nil {
				return err
			}
			if err := s.file.SetColWidth(s.sheet, spacer, spacer, spacerColWidth); err != nil {
				return err
			}
		}
	}

	if first {
		if err := s.writeSpanning(reportTitle(s.print), s.styles.title); err != nil {
			return err
		}
	}
	return s.writeHeaders()
}

func (s *sheetWriter) writeSpanning(text string, style int) error {
	first, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(s.lastCol(), s.row)
	if err != nil {
		return err
	}
	if err := s.file.SetCellStr(s.sheet, first, text); err != nil {
		return err
	}
	if first != last {
		if err := s.file.MergeCell(s.sheet, first, last); err != nil {
			return err
		}
	}
	if err := s.file.SetCellStyle(s.sheet, first, last, style); err != nil {
		return err
	}
	s.row++
	return nil
}

func (s *sheetWriter) writeHeaders() error {
	for j, col := range s.print.Columns {
		cell, err := excelize.CoordinatesToCellName(s.col(j), s.row)
		if err != nil {
			return err
		}
		if err := s.file.SetCellStr(s.sheet, cell, columnLabel(col, j)); err != nil {
			return err
		}
		if err := s.file.SetCellStyle(s.sheet, cell, cell, s.styles.header); err != nil {
			return err
		}
	}
	s.row++
	return nil
}

func (s *sheetWriter) writePage(page *report.Page) error {
	for _, row := range page.Rows {
		for j, c := range row {
			if err := s.writeCell(s.col(j), c); err != nil {
				return err
			}
		}
		s.row++
	}
	return nil
}

func (s *sheetWriter) writeSummary() error {
	if s.print.Summary == "" {
		return nil
	}
	if !s.cfg.RemoveEmptySpaceBetweenRows {
		s.row++
	}
	return s.writeSpanning(s.print.Summary, s.styles.text)
}

func (s *sheetWriter) writeCell(col int, c report.Cell) error {
	name, err := excelize.CoordinatesToCellName(col, s.row)
	if err != nil {
		return err
	}

	style := s.styles.text
	text := c.Text
	multiline := strings.Contains(text, "\n")
	if multiline {
		if s.cfg.CollapseRowSpan {
			text = strings.Join(strings.Fields(text), " ")
		} else {
			style = s.styles.wrap
		}
	}

	if s.cfg.DetectCellType && c.Value != nil && !multiline {
		switch v := c.Value.(type) {
		case time.Time:
			style = s.styles.date
			if v.Hour() != 0 || v.Minute() != 0 || v.Second() != 0 {
				style = s.styles.dateTime
			}
			err = s.file.SetCellValue(s.sheet, name, v)
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
			err = s.file.SetCellValue(s.sheet, name, v)
		default:
			err = s.file.SetCellStr(s.sheet, name, text)
		}
	} else {
		err = s.file.SetCellStr(s.sheet, name, text)
	}
	if err != nil {
		return err
	}
	return s.file.SetCellStyle(s.sheet, name, name, style)
}

// sheetName приводит имя отчета к допустимому имени листа
func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "Report"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
