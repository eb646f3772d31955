package database

import (
	"context"
	"fmt"

	"report_wrapper/internal/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConnectionProvider выдает подключение для одного заполнения отчета.
// MakeConnection может вернуть nil, nil: источника данных нет.
type ConnectionProvider interface {
	MakeConnection(ctx context.Context) (*gorm.DB, error)
	CloseConnection(conn *gorm.DB) error
}

// GormProvider открывает новое подключение на каждый вызов.
type GormProvider struct {
	cfg    Config
	logger *logrus.Logger
}

// NewGormProvider creates a provider for the given database settings.
func NewGormProvider(cfg Config, logger *logrus.Logger) *GormProvider {
	return &GormProvider{cfg: cfg, logger: logger}
}

// MakeConnection opens a connection and checks it with a ping.
func (p *GormProvider) MakeConnection(ctx context.Context) (*gorm.DB, error) {
	if p.cfg.DSN == "" {
		return nil, nil
	}

	db, err := NewDatabase(p.cfg, p.logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"driver": p.cfg.Driver,
	}).Debug("Подключение к БД установлено")

	return db, nil
}

// CloseConnection закрывает пул, стоящий за подключением.
func (p *GormProvider) CloseConnection(conn *gorm.DB) error {
	if conn == nil {
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// NoConnection is the provider used when no data source is configured.
type NoConnection struct{}

func (NoConnection) MakeConnection(context.Context) (*gorm.DB, error) { return nil, nil }

func (NoConnection) CloseConnection(*gorm.DB) error { return nil }

// NewProvider picks the provider for the application config.
func NewProvider(cfg config.Config, logger *logrus.Logger) ConnectionProvider {
	if !cfg.HasDataSource() {
		return NoConnection{}
	}
	return NewGormProvider(Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
		Debug:  cfg.Server.Debug,
	}, logger)
}
