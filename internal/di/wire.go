package di

import (
	"report_wrapper/internal/config"
	"report_wrapper/internal/database"
	"report_wrapper/internal/infrastructure/template"
	"report_wrapper/internal/logging"
	"report_wrapper/internal/server"
	"report_wrapper/internal/storage"
	"report_wrapper/internal/usecase"

	"github.com/sirupsen/logrus"
	"go.uber.org/fx"
)

// Module provides the report pipeline for an already loaded configuration.
func Module(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			logging.New,
			storage.NewStorageFromConfig,
			database.NewProvider,
			newCompiler,
			template.NewFiller,
			newReportService,
		),
	)
}

// ServerModule adds the HTTP front end on top of Module.
func ServerModule(cfg config.Config) fx.Option {
	return fx.Options(
		Module(cfg),
		fx.Provide(
			newTemplateLister,
			server.NewServer,
			newHTTPServer,
		),
	)
}

func newCompiler(s storage.Storage, logger *logrus.Logger) *template.Compiler {
	return template.NewCompiler(s, logger)
}

func newReportService(c *template.Compiler, f *template.Filler, logger *logrus.Logger) *usecase.ReportService {
	return usecase.NewReportService(c, f, logger)
}

func newTemplateLister(s storage.Storage) template.Lister {
	return s
}

func newHTTPServer(s *server.Server) server.HTTPServer {
	return s
}
