package database

import (
	"context"
	"path/filepath"
	"testing"

	"report_wrapper/internal/config"
	"report_wrapper/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{"", "postgres", "pq", "sqlite", "SQLite"} {
		d, err := Dialector(Config{Driver: driver, DSN: "x"})
		require.NoError(t, err, driver)
		assert.NotNil(t, d)
	}

	_, err := Dialector(Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestGormProviderSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reports.db")
	p := NewGormProvider(Config{Driver: "sqlite", DSN: dsn}, logging.Discard())

	conn, err := p.MakeConnection(context.Background())
	require.NoError(t, err)
	require.NotNil(t, conn)

	require.NoError(t, conn.Exec("CREATE TABLE t (id INTEGER)").Error)
	require.NoError(t, p.CloseConnection(conn))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	assert.Error(t, sqlDB.Ping())
}

func TestGormProviderEmptyDSN(t *testing.T) {
	p := NewGormProvider(Config{Driver: "sqlite"}, logging.Discard())
	conn, err := p.MakeConnection(context.Background())
	require.NoError(t, err)
	assert.Nil(t, conn)
	assert.NoError(t, p.CloseConnection(nil))
}

func TestNewProvider(t *testing.T) {
	p := NewProvider(config.Config{}, logging.Discard())
	assert.IsType(t, NoConnection{}, p)

	p = NewProvider(config.Config{DB: config.DB{Driver: "sqlite", DSN: "x.db"}}, logging.Discard())
	assert.IsType(t, &GormProvider{}, p)
}
