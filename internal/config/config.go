package config

import (
	"fmt"
	"strings"
	"time"

	"billing/internal/logger"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DatabaseURI wins over the DB_* parts when set.
	DatabaseURI     string `envconfig:"DATABASE_URI"`
	DBHost          string `envconfig:"DB_HOST" default:"localhost"`
	DBPort          string `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" default:"postgres"`
	DBPassword      string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName          string `envconfig:"DB_NAME" default:"postgres"`
	DBSSLMode       string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxOpenConns  int    `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DBMaxIdleConns  int    `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DBConnLifetime  int    `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // seconds
	DBAutoMigrate   bool   `envconfig:"DATABASE_AUTO_MIGRATE" default:"true"`
	DBLogQueries    bool   `envconfig:"DATABASE_LOG_QUERIES" default:"false"`

	Port        string   `envconfig:"PORT" default:"8080"`
	GinMode     string   `envconfig:"GIN_MODE" default:"debug"`
	JWTSecret   string   `envconfig:"JWT_SECRET"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`

	// LockWait bounds how long a payment waits for another payment on the same invoice.
	LockWait   time.Duration `envconfig:"LOCK_WAIT" default:"3s"`
	RetryDelay time.Duration `envconfig:"CONFLICT_RETRY_DELAY" default:"50ms"`

	SentryDSN         string  `envconfig:"SENTRY_DSN"`
	SentryEnvironment string  `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
	SentrySampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE" default:"0"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"console"`
	LogTimeFormat string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02T15:04:05Z07:00"`
	LogOutput     string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.LockWait <= 0 {
		return fmt.Errorf("LOCK_WAIT must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("CONFLICT_RETRY_DELAY must not be negative")
	}
	if c.GinMode == "release" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in release mode")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	if c.DatabaseURI != "" {
		return c.DatabaseURI
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// Secret returns the JWT signing key, falling back to a development key outside release mode.
func (c *Config) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte("default_super_secret_key")
	}
	return []byte(c.JWTSecret)
}

func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      strings.ToLower(c.LogLevel),
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}
