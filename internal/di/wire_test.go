package di

import (
	"testing"

	"report_wrapper/internal/config"
	"report_wrapper/internal/database"
	"report_wrapper/internal/server"
	"report_wrapper/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Storage: config.Storage{Type: "local", BasePath: t.TempDir()},
		Logging: config.Logging{Level: "error"},
	}
}

func TestModuleResolves(t *testing.T) {
	var (
		svc      *usecase.ReportService
		provider database.ConnectionProvider
	)
	app := fx.New(Module(testConfig(t)), fx.NopLogger, fx.Populate(&svc, &provider))
	require.NoError(t, app.Err())

	assert.NotNil(t, svc)
	assert.IsType(t, database.NoConnection{}, provider)
}

func TestServerModuleResolves(t *testing.T) {
	var srv server.HTTPServer
	app := fx.New(ServerModule(testConfig(t)), fx.NopLogger, fx.Populate(&srv))
	require.NoError(t, app.Err())
	assert.NotNil(t, srv)
}
