package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"report_wrapper/internal/config"
	"report_wrapper/internal/database"
	"report_wrapper/internal/di"
	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/infrastructure/template"
	"report_wrapper/internal/storage"
	"report_wrapper/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

type options struct {
	configPath   string
	templatePath string
	name         string
	format       string
	params       []string
	noDataSource bool
}

// Execute runs the report command and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return report.ExitCode(err)
}

// NewRootCommand builds the command tree. Artifacts go to stdout only.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "report",
		Short: "Compile, fill and export a report template",
		Long: `report compiles a YAML report template, fills it from the configured
database (or from 50 empty records when there is none) and writes the
exported document to standard output.

Supported formats: PDF, CSV, XLS, XLSX, XHTML, DOCX

Examples:
  report -t reports/employees.yaml -f pdf > employees.pdf
  report -t employees.yaml -f xlsx -p dept=sales -p year=2024 > out.xlsx
  report -t employees.yaml -f csv --no-datasource`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, stdout)
		},
	}
	root.SetOut(stderr)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: config.yaml in ., ./config, /etc/report-wrapper)")
	root.Flags().StringVarP(&opts.templatePath, "template", "t", "", "Template source (path or storage key)")
	root.Flags().StringVarP(&opts.name, "name", "n", "", "Report name (default: template file name)")
	root.Flags().StringVarP(&opts.format, "format", "f", "PDF", "Output format")
	root.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Report parameter as name=value (repeatable)")
	root.Flags().BoolVar(&opts.noDataSource, "no-datasource", false, "Fill from empty placeholder records")

	root.AddCommand(newTemplatesCommand(opts, stdout))
	return root
}

func newTemplatesCommand(opts *options, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "templates [prefix]",
		Short: "List template sources in storage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			var store storage.Storage
			app := fx.New(di.Module(cfg), fx.NopLogger, fx.Populate(&store))
			if err := app.Err(); err != nil {
				return err
			}

			keys, err := template.ListTemplates(cmd.Context(), store, prefix)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(stdout, key)
			}
			return nil
		},
	}
}

func runReport(ctx context.Context, opts *options, stdout io.Writer) error {
	if strings.TrimSpace(opts.templatePath) == "" {
		return report.Errorf(report.KindUsage, "report", "--template is required")
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return report.NewError(report.KindUsage, "report", err)
	}
	params, err := parseParams(opts.params)
	if err != nil {
		return report.NewError(report.KindUsage, "report", err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var (
		svc      *usecase.ReportService
		provider database.ConnectionProvider
	)
	app := fx.New(di.Module(cfg), fx.NopLogger, fx.Populate(&svc, &provider))
	if err := app.Err(); err != nil {
		return err
	}

	source := opts.templatePath
	if cfg.Storage.Type == storage.StorageTypeLocal && !filepath.IsAbs(source) {
		if abs, err := filepath.Abs(source); err == nil {
			source = abs
		}
	}

	r := svc.NewReport(opts.name, source, stdout)
	if err := r.GenerateReport(ctx, params, provider); err != nil {
		return err
	}
	return r.Generate(ctx, string(format))
}

func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return config.Config{}, report.NewError(report.KindUsage, "load config", err)
	}
	if opts.noDataSource {
		cfg.DB.DSN = ""
	}
	return cfg, nil
}

// parseParams разбирает параметры вида name=value
func parseParams(raw []string) (report.Parameters, error) {
	params := make(report.Parameters, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected name=value", kv)
		}
		params[name] = value
	}
	return params, nil
}
