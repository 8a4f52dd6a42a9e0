package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Security SecurityConfig
	Session  SessionConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig describes how to reach the sales database. For the sqlite
// driver Name is the database file path and the network fields are ignored.
type DatabaseConfig struct {
	Driver                 string
	Host                   string
	Port                   int
	Name                   string
	User                   string
	Password               string
	Encrypt                bool
	TrustServerCertificate bool
	ConnectTimeout         time.Duration
	QueryTimeout           time.Duration
	LowercaseIdentifiers   bool
}

type LoggerConfig struct {
	Level          string
	Format         string
	File           string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

type SessionConfig struct {
	CookieName   string
	TTL          time.Duration
	CookieSecure bool
	// MaxActive caps the number of loaded tables held at once.
	MaxActive int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8084),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:                 strings.ToLower(getEnvString("DB_DRIVER", DriverPostgres)),
			Host:                   getEnvString("DB_HOST", "localhost"),
			Port:                   getEnvInt("DB_PORT", 5432),
			Name:                   getEnvString("DB_NAME", "adventureworks"),
			User:                   getEnvString("DB_USER", ""),
			Password:               getEnvString("DB_PASSWORD", ""),
			Encrypt:                getEnvBool("DB_ENCRYPT", true),
			TrustServerCertificate: getEnvBool("DB_TRUST_SERVER_CERTIFICATE", false),
			ConnectTimeout:         getEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
			QueryTimeout:           getEnvDuration("DB_QUERY_TIMEOUT", 2*time.Minute),
			LowercaseIdentifiers:   getEnvBool("DB_LOWERCASE_IDENTIFIERS", false),
		},
		Logger: LoggerConfig{
			Level:          getEnvString("LOG_LEVEL", "info"),
			Format:         getEnvString("LOG_FORMAT", "json"),
			File:           getEnvString("LOG_FILE", ""),
			FileMaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
			FileMaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 3),
			FileMaxAgeDays: getEnvInt("LOG_FILE_MAX_AGE_DAYS", 28),
		},
		Security: SecurityConfig{
			EnableCSRF:      getEnvBool("SECURITY_CSRF_ENABLED", true),
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8084"}),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
		Session: SessionConfig{
			CookieName:   getEnvString("SESSION_COOKIE_NAME", "dashboard_session"),
			TTL:          getEnvDuration("SESSION_TTL", 30*time.Minute),
			CookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
			MaxActive:    getEnvInt("SESSION_MAX_ACTIVE", 256),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if err := c.Database.validate(); err != nil {
		return err
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session cookie name cannot be empty")
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Session.MaxActive <= 0 {
		return fmt.Errorf("session max active must be positive")
	}

	return nil
}

func (d DatabaseConfig) validate() error {
	switch d.Driver {
	case DriverPostgres:
		if d.Host == "" {
			return fmt.Errorf("database host cannot be empty")
		}
		if d.Port < 1 || d.Port > 65535 {
			return fmt.Errorf("database port must be between 1 and 65535, got %d", d.Port)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q, must be one of: %s, %s", d.Driver, DriverPostgres, DriverSQLite)
	}

	if d.Name == "" {
		return fmt.Errorf("database name cannot be empty")
	}

	if d.QueryTimeout <= 0 {
		return fmt.Errorf("database query timeout must be positive")
	}

	return nil
}

// LogValue keeps the password out of structured logs.
func (d DatabaseConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", d.Driver),
		slog.String("host", d.Host),
		slog.Int("port", d.Port),
		slog.String("name", d.Name),
		slog.String("user", d.User),
		slog.Bool("encrypt", d.Encrypt),
		slog.Duration("query_timeout", d.QueryTimeout),
	)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
