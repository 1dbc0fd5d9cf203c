// Package config provides configuration management for the parcelhub server.
// It loads settings from environment variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Supported DB_DRIVER values.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMongo    = "mongo"
)

// Config holds all configuration for the parcelhub server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Hub      HubConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds store connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3, mongo
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "parcelhub_")
	MongoURI string // Used when Driver is mongo
}

// AuthConfig holds credential verification settings.
type AuthConfig struct {
	JWTSecret string
}

// HubConfig holds real-time core settings.
type HubConfig struct {
	BacklogLimit   int      // Unread notifications sent on connect, 0 for all
	SendBuffer     int      // Outbound frames queued per connection
	AllowedOrigins []string // Empty means same-origin only
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string // debug, info, warn, error
}

// Load loads configuration from environment variables.
// A .env file in the working directory, when present, fills unset variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", DriverMySQL)),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "parcelhub"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "parcelhub"),
			Prefix:   getEnv("DB_PREFIX", "parcelhub_"),
			MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/parcelhub"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Hub: HubConfig{
			BacklogLimit:   getEnvInt("HUB_BACKLOG_LIMIT", 0),
			SendBuffer:     getEnvInt("HUB_SEND_BUFFER", 256),
			AllowedOrigins: getEnvList("HUB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	return validation.Errors{
		"server": validation.ValidateStruct(&c.Server,
			validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
			validation.Field(&c.Server.ShutdownTimeout, validation.Required),
		),
		"database": c.Database.Validate(),
		"auth": validation.ValidateStruct(&c.Auth,
			validation.Field(&c.Auth.JWTSecret, validation.Required.Error("JWT_SECRET environment variable is required"), validation.Length(16, 0)),
		),
		"hub": validation.ValidateStruct(&c.Hub,
			validation.Field(&c.Hub.BacklogLimit, validation.Min(0)),
			validation.Field(&c.Hub.SendBuffer, validation.Required, validation.Min(1)),
		),
		"log": validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		),
	}.Filter()
}

// Validate checks the store settings for the selected driver.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverMySQL, DriverPostgres, DriverSQLite, DriverMongo)),
		validation.Field(&c.Password,
			validation.When(c.Driver == DriverMySQL || c.Driver == DriverPostgres,
				validation.Required.Error("DB_PASSWORD environment variable is required"))),
		validation.Field(&c.Database, validation.When(c.Driver != DriverMongo, validation.Required)),
		validation.Field(&c.MongoURI, validation.When(c.Driver == DriverMongo, validation.Required)),
	)
}

// IsMongo reports whether the mongo store is selected.
func (c *DatabaseConfig) IsMongo() bool {
	return c.Driver == DriverMongo
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case DriverSQLite:
		return c.Database // SQLite uses file path as DSN
	case DriverMongo:
		return c.MongoURI
	default:
		return ""
	}
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration retrieves environment variable as duration ("30s", "1m") or returns default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
