package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Server содержит настройки HTTP-сервера.
type Server struct {
	Address string `mapstructure:"address"`
	Debug   bool   `mapstructure:"debug"`
}

// DB содержит параметры подключения к БД.
// Пустой DSN означает отсутствие источника данных.
type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Storage описывает, откуда читаются шаблоны отчетов.
type Storage struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"basepath"`
	S3       S3     `mapstructure:"s3"`
}

// S3 содержит настройки для S3-совместимого хранилища.
type S3 struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Logging содержит настройки логирования.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Config объединяет все разделы конфигурации.
type Config struct {
	Server  Server  `mapstructure:"server"`
	DB      DB      `mapstructure:"database"`
	Storage Storage `mapstructure:"storage"`
	Logging Logging `mapstructure:"logging"`
}

var validDrivers = []string{"postgres", "pq", "sqlite"}

// Load читает конфигурацию из файла и окружения с помощью viper.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file; empty path searches the default locations.
func LoadFile(path string) (Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/report-wrapper")
	}

	// Настройка для environment variables
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		// Если файл конфигурации не найден, продолжаем с environment variables и defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debug", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.basepath", ".")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "report-templates")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// bindEnvironmentVariables привязывает переменные окружения к конфигурации
func bindEnvironmentVariables(v *viper.Viper) {
	_ = v.BindEnv("server.address", "APP_SERVER_ADDRESS")
	_ = v.BindEnv("server.debug", "APP_SERVER_DEBUG")

	_ = v.BindEnv("database.driver", "APP_DATABASE_DRIVER")
	_ = v.BindEnv("database.dsn", "APP_DATABASE_DSN")

	_ = v.BindEnv("storage.type", "APP_STORAGE_TYPE")
	_ = v.BindEnv("storage.basepath", "APP_STORAGE_BASEPATH")
	_ = v.BindEnv("storage.s3.region", "APP_STORAGE_S3_REGION")
	_ = v.BindEnv("storage.s3.bucket", "APP_STORAGE_S3_BUCKET")
	_ = v.BindEnv("storage.s3.endpoint", "APP_STORAGE_S3_ENDPOINT")
	_ = v.BindEnv("storage.s3.access_key", "APP_STORAGE_S3_ACCESS_KEY")
	_ = v.BindEnv("storage.s3.secret_key", "APP_STORAGE_S3_SECRET_KEY")

	_ = v.BindEnv("logging.level", "APP_LOGGING_LEVEL")
	_ = v.BindEnv("logging.format", "APP_LOGGING_FORMAT")
}

// validateConfig проверяет корректность конфигурации
func validateConfig(cfg Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server address cannot be empty")
	}

	if cfg.DB.DSN != "" && !contains(validDrivers, strings.ToLower(cfg.DB.Driver)) {
		return fmt.Errorf("database driver must be one of %v, got: %s", validDrivers, cfg.DB.Driver)
	}

	if cfg.Storage.Type != "local" && cfg.Storage.Type != "s3" {
		return fmt.Errorf("storage type must be 'local' or 's3', got: %s", cfg.Storage.Type)
	}

	if cfg.Storage.Type == "local" && cfg.Storage.BasePath == "" {
		return fmt.Errorf("storage basepath cannot be empty for local storage")
	}

	if cfg.Storage.Type == "s3" {
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("S3 region cannot be empty")
		}
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLogLevels, strings.ToLower(cfg.Logging.Level)) {
		return fmt.Errorf("invalid logging level: %s. Valid levels: %v", cfg.Logging.Level, validLogLevels)
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// HasDataSource возвращает true, если настроено подключение к БД
func (c Config) HasDataSource() bool {
	return c.DB.DSN != ""
}

// String возвращает строковое представление конфигурации (без чувствительных данных)
func (c Config) String() string {
	return fmt.Sprintf("Config{Server: %+v, DB: {Driver: %s, DSN: [HIDDEN]}, Storage: {Type: %s, BasePath: %s, Bucket: %s}, Logging: %+v}",
		c.Server, c.DB.Driver, c.Storage.Type, c.Storage.BasePath, c.Storage.S3.Bucket, c.Logging)
}
