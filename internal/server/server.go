package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"report_wrapper/internal/config"
	"report_wrapper/internal/database"
	"report_wrapper/internal/domain/report"
	"report_wrapper/internal/export"
	"report_wrapper/internal/infrastructure/template"
	"report_wrapper/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

// ErrorCodeHeader carries the report error code on failed renders.
const ErrorCodeHeader = "X-Report-Error-Code"

// HTTPServer is the lifecycle surface used by the application runner.
type HTTPServer interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	echo      *echo.Echo
	service   *usecase.ReportService
	provider  database.ConnectionProvider
	templates template.Lister
	logger    *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	reportService *usecase.ReportService,
	provider database.ConnectionProvider,
	templates template.Lister,
	logger *logrus.Logger,
) *Server {
	e := echo.New()
	e.Debug = cfg.Server.Debug
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency,
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Debug("HTTP запрос")
			return nil
		},
	}))

	server := &Server{
		echo:      e,
		service:   reportService,
		provider:  provider,
		templates: templates,
		logger:    logger,
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.WithField("address", address).Info("Starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// API routes
	api := s.echo.Group("/api/v1")
	{
		api.GET("/templates", s.listTemplates)
		api.POST("/reports/render", s.renderReport)
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "report-wrapper",
	})
}

// listTemplates handles listing template sources
func (s *Server) listTemplates(c echo.Context) error {
	keys, err := template.ListTemplates(c.Request().Context(), s.templates, c.QueryParam("prefix"))
	if err != nil {
		s.logger.WithError(err).Error("Failed to list templates")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to list templates",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"templates": keys,
		"count":     len(keys),
	})
}

// RenderRequest is the body of POST /api/v1/reports/render.
type RenderRequest struct {
	Template     string         `json:"template"`
	Name         string         `json:"name"`
	Format       string         `json:"format"`
	Parameters   map[string]any `json:"parameters"`
	NoDataSource bool           `json:"no_datasource"`
}

// renderReport compiles, fills and exports a report in one request
func (s *Server) renderReport(c echo.Context) error {
	var req RenderRequest
	if err := c.Bind(&req); err != nil {
		return s.reportError(c, report.NewError(report.KindUsage, "bind request", err))
	}
	key, err := templateKey(req.Template)
	if err != nil {
		return s.reportError(c, report.NewError(report.KindUsage, "render", err))
	}

	format, err := report.ParseFormat(req.Format)
	if err != nil {
		return s.reportError(c, report.NewError(report.KindUsage, "render", err))
	}
	exporter, err := export.New(format)
	if err != nil {
		return s.reportError(c, report.NewError(report.ExportKind(format), "render", err))
	}

	provider := s.provider
	if req.NoDataSource {
		provider = database.NoConnection{}
	}

	// Артефакт буферизуется, чтобы ошибку можно было вернуть как JSON
	var buf bytes.Buffer
	ctx := c.Request().Context()
	r := s.service.NewReport(req.Name, key, &buf)
	if err := r.GenerateReport(ctx, req.Parameters, provider); err != nil {
		return s.reportError(c, err)
	}
	if err := r.Generate(ctx, string(format)); err != nil {
		return s.reportError(c, err)
	}

	filename := fmt.Sprintf("%s.%s", r.Template().Name, exporter.Extension())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, exporter.MimeType(), buf.Bytes())
}

// templateKey принимает только относительные ключи внутри хранилища
func templateKey(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("template is required")
	}
	slashed := strings.ReplaceAll(raw, "\\", "/")
	if path.IsAbs(slashed) || filepath.IsAbs(raw) || filepath.VolumeName(raw) != "" {
		return "", fmt.Errorf("template %q must be a relative storage key", raw)
	}
	key := path.Clean(slashed)
	if key == "." || key == ".." || strings.HasPrefix(key, "../") {
		return "", fmt.Errorf("template %q is outside the template storage", raw)
	}
	return key, nil
}

// reportError answers with the classified error as JSON
func (s *Server) reportError(c echo.Context, err error) error {
	kind := report.KindOf(err)
	code := kind.Code()

	s.logger.WithFields(logrus.Fields{
		"kind": kind,
		"code": code,
	}).WithError(err).Warn("Ошибка формирования отчета")

	c.Response().Header().Set(ErrorCodeHeader, strconv.Itoa(code))
	return c.JSON(httpStatus(kind), map[string]interface{}{
		"error": err.Error(),
		"kind":  kind,
		"code":  code,
	})
}

func httpStatus(kind report.Kind) int {
	switch kind {
	case report.KindUsage:
		return http.StatusBadRequest
	case report.KindCompile, report.KindFill:
		return http.StatusUnprocessableEntity
	case report.KindNotFilled:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
