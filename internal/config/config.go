package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	LogLevel string `env:"LOG_LEVEL"`
	HTTP     HTTPConfig
	CORS     CORSConfig
	Display  DisplayConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
}

type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type CORSConfig struct {
	Origins     []string `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`
	Credentials bool     `env:"CORS_CREDENTIALS" env-default:"false"`
}

// DisplayConfig sets the zone timestamps are rendered in by the API.
type DisplayConfig struct {
	Timezone string `env:"DISPLAY_TIMEZONE" env-default:"Asia/Manila"`
}

// Location loads the display zone. An empty Timezone means UTC.
func (c DisplayConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown display timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AuthConfig enables bearer token parsing when SigningKey is set.
// Without it every request acts as the system actor.
type AuthConfig struct {
	Issuer     string `env:"AUTH_JWT_ISSUER" env-default:"go-task-tracker"`
	SigningKey string `env:"AUTH_JWT_SIGNING_KEY"`
}

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"postgres"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME"`
	Password       string        `env:"POSTGRES_PASSWORD"`
	Database       string        `env:"POSTGRES_DATABASE"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" env-default:"tasks.db"`
}

// Validate checks the values cleanenv cannot express with tags.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvProd, EnvLocal:
	default:
		return fmt.Errorf("unknown env: %s", c.Env)
	}

	_, err := c.Display.Location()
	if err != nil {
		return err
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres.Username == "" || c.Postgres.Database == "" {
			return fmt.Errorf("postgres driver requires POSTGRES_USERNAME and POSTGRES_DATABASE")
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return fmt.Errorf("sqlite driver requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	return nil
}

// AllowAllOrigins reports whether the wildcard origin was configured.
func (c CORSConfig) AllowAllOrigins() bool {
	for _, origin := range c.Origins {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}
