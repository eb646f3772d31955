package usecase

import (
	"context"
	"io"

	"report_wrapper/internal/database"
	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/export"
	sqlinfra "report_wrapper/internal/infrastructure/sql"
	"report_wrapper/internal/infrastructure/template"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TemplateCompiler compiles a template source.
type TemplateCompiler interface {
	Compile(ctx context.Context, tpl report.Template) (*template.Compiled, error)
}

// ReportFiller fills a compiled template from a data source.
type ReportFiller interface {
	Fill(ctx context.Context, c *template.Compiled, params report.Parameters, src template.DataSource) (*report.Print, error)
}

// ExporterFactory returns the exporter for a format.
type ExporterFactory func(format report.Format) (export.Exporter, error)

// ReportService создает отчеты и хранит их общие зависимости.
type ReportService struct {
	Compiler  TemplateCompiler
	Filler    ReportFiller
	Exporters ExporterFactory
	Logger    *logrus.Logger
}

// NewReportService собирает сервис из зависимостей.
func NewReportService(compiler TemplateCompiler, filler ReportFiller, logger *logrus.Logger) *ReportService {
	return &ReportService{
		Compiler:  compiler,
		Filler:    filler,
		Exporters: export.New,
		Logger:    logger,
	}
}

// NewReport creates a report handle writing its artifacts to out.
func (s *ReportService) NewReport(name, source string, out io.Writer) *Report {
	tpl := report.NewTemplate(name, source)
	runID := uuid.NewString()
	return &Report{
		svc:      s,
		template: tpl,
		out:      out,
		state:    StateUncompiled,
		log: s.Logger.WithFields(logrus.Fields{
			"template": tpl.Name,
			"run_id":   runID,
		}),
	}
}

// State is the lifecycle stage of a Report.
type State int

const (
	StateUncompiled State = iota
	StateFilled
	StateExported
)

func (s State) String() string {
	switch s {
	case StateFilled:
		return "filled"
	case StateExported:
		return "exported"
	default:
		return "uncompiled"
	}
}

// Report is a single report run: compile and fill once, export any number of times.
// A Report is not safe for concurrent use.
type Report struct {
	svc      *ReportService
	template report.Template
	out      io.Writer
	print    *report.Print
	state    State
	log      *logrus.Entry
}

// Template returns the template the report was created for.
func (r *Report) Template() report.Template { return r.template }

// State returns the current lifecycle stage.
func (r *Report) State() State { return r.state }

// Print returns the filled report or nil.
func (r *Report) Print() *report.Print { return r.print }

// GenerateReport compiles the template and fills it. Without a connection the
// report is filled from PlaceholderRecords empty records.
func (r *Report) GenerateReport(ctx context.Context, params report.Parameters, provider database.ConnectionProvider) error {
	r.print = nil
	r.state = StateUncompiled

	compiled, err := r.svc.Compiler.Compile(ctx, r.template)
	if err != nil {
		r.log.WithError(err).Error("Ошибка компиляции шаблона")
		return report.NewError(report.KindCompile, "compile report", err)
	}

	if provider == nil {
		provider = database.NoConnection{}
	}
	conn, err := provider.MakeConnection(ctx)
	if err != nil {
		r.log.WithError(err).Error("Ошибка подключения к БД")
		return report.NewError(report.KindFill, "fill report", err)
	}

	src := template.Empty(template.PlaceholderRecords)
	if conn != nil {
		defer func() {
			// ошибка закрытия не влияет на результат
			if err := provider.CloseConnection(conn); err != nil {
				r.log.WithError(err).Warn("Ошибка закрытия подключения к БД")
			}
		}()
		src = template.Live(sqlinfra.NewExecutor(conn))
	}

	p, err := r.svc.Filler.Fill(ctx, compiled, params, src)
	if err != nil {
		r.log.WithError(err).Error("Ошибка заполнения отчета")
		return report.NewError(report.KindFill, "fill report", err)
	}

	r.print = p
	r.state = StateFilled
	r.log.WithFields(logrus.Fields{
		"source":  src.Kind().String(),
		"records": p.Records,
		"pages":   p.PageCount(),
	}).Info("Отчет заполнен")
	return nil
}

// GeneratePDF exports the filled report as PDF.
func (r *Report) GeneratePDF(ctx context.Context) error {
	return r.export(ctx, report.FormatPDF)
}

// GenerateCSV exports the filled report as CSV.
func (r *Report) GenerateCSV(ctx context.Context) error {
	return r.export(ctx, report.FormatCSV)
}

// GenerateExcel exports the filled report as an XLSX workbook.
func (r *Report) GenerateExcel(ctx context.Context) error {
	return r.export(ctx, report.FormatXLSX)
}

// GenerateXLS is kept for callers of the legacy spreadsheet format.
func (r *Report) GenerateXLS(ctx context.Context) error {
	return r.GenerateExcel(ctx)
}

// GenerateXHTML exports the filled report as XHTML.
func (r *Report) GenerateXHTML(ctx context.Context) error {
	return r.export(ctx, report.FormatXHTML)
}

// GenerateDOCX exports the filled report as a Word document.
func (r *Report) GenerateDOCX(ctx context.Context) error {
	return r.export(ctx, report.FormatDOCX)
}

// Generate exports in the format given by name (case-insensitive).
func (r *Report) Generate(ctx context.Context, name string) error {
	format, err := report.ParseFormat(name)
	if err != nil {
		return report.NewError(report.KindUsage, "generate", err)
	}

	switch format {
	case report.FormatPDF:
		return r.GeneratePDF(ctx)
	case report.FormatCSV:
		return r.GenerateCSV(ctx)
	case report.FormatXLS:
		return r.GenerateXLS(ctx)
	case report.FormatXLSX:
		return r.GenerateExcel(ctx)
	case report.FormatXHTML:
		return r.GenerateXHTML(ctx)
	default:
		return r.GenerateDOCX(ctx)
	}
}

func (r *Report) export(ctx context.Context, format report.Format) error {
	op := "export " + string(format)
	if r.print == nil {
		return report.NewError(report.KindNotFilled, op, report.ErrNotFilled)
	}

	kind := report.ExportKind(format)
	exp, err := r.svc.Exporters(format)
	if err != nil {
		return report.NewError(kind, op, err)
	}

	cw := &export.CountingWriter{W: r.out}
	if err := exp.Export(ctx, r.print, cw); err != nil {
		r.log.WithError(err).WithField("format", format).Error("Ошибка выгрузки отчета")
		return report.NewError(kind, op, err)
	}

	r.state = StateExported
	r.log.WithFields(logrus.Fields{
		"format": format,
		"bytes":  cw.Count,
	}).Info("Отчет выгружен")
	return nil
}
