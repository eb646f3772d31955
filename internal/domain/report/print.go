package report

// Align задает выравнивание текста в колонке.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Orientation задает ориентацию страницы.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// Column описывает колонку заполненного отчета.
type Column struct {
	Header string
	Width  float64
	Align  Align
}

// Cell holds an evaluated expression: the raw value and its display text.
type Cell struct {
	Value any
	Text  string
}

// Row is one detail record of a page.
type Row []Cell

// Page is one paginated page of a filled report.
type Page struct {
	Number int
	Header string
	Rows   []Row
	Footer string
}

// Print is a filled report ready to be exported.
type Print struct {
	Name        string
	Title       string
	Orientation Orientation
	Columns     []Column
	Pages       []*Page
	Summary     string
	Records     int
}

// PageCount returns the number of pages.
func (p *Print) PageCount() int {
	return len(p.Pages)
}

// Rows returns every detail row across all pages in order.
func (p *Print) Rows() []Row {
	rows := make([]Row, 0, p.Records)
	for _, page := range p.Pages {
		rows = append(rows, page.Rows...)
	}
	return rows
}

// Headers returns the column header texts.
func (p *Print) Headers() []string {
	headers := make([]string, len(p.Columns))
	for i, col := range p.Columns {
		headers[i] = col.Header
	}
	return headers
}
