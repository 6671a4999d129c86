/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Defaults (envDefault tags)
  2. .env in the working directory, unless ENV=prod
  3. Process environment
  4. Command-line flags (-port, -db, -driver), applied by cmd/server

VARIABLES:
  PORT               HTTP port (8080)
  STORAGE_DRIVER     sqlite | postgres | memory (sqlite)
  SQLITE_PATH        SQLite file, ":memory:" allowed (holocron.db)
  DATABASE_URL       Full postgres URL; overrides the DB_* parts
  DB_USER, DB_PASS, DB_HOST, DB_PORT, DB_NAME
  REQUEST_IP_HEADER  Header holding the client address (X-Forwarded-For)
  LOG_LEVEL          debug | info | warn | error (info)
  LOG_FORMAT         text | json (text)
  CORS_ORIGINS       Comma separated allowed origins (*)
*/
package config

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// StorageDriver identifies a concrete storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type Config struct {
	Port       int           `env:"PORT" envDefault:"8080"`
	Driver     StorageDriver `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath string        `env:"SQLITE_PATH" envDefault:"holocron.db"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPass      string `env:"DB_PASS" envDefault:"postgres"`
	DBHost      string `env:"DB_HOST" envDefault:"database"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME" envDefault:"postgres"`

	RequestIPHeader string   `env:"REQUEST_IP_HEADER" envDefault:"X-Forwarded-For"`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string   `env:"LOG_FORMAT" envDefault:"text"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads .env (outside prod) and parses the environment. Callers
// apply their overrides, then Validate.
func Load() (Config, error) {
	if os.Getenv("ENV") != "prod" {
		// a missing .env is normal
		_ = godotenv.Load()
	}
	return Parse()
}

// Parse parses the process environment without touching .env. It does not
// call Validate: flags may still override what it returns.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Driver {
	case StorageMemory, StoragePostgres:
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// PostgresDSN returns DATABASE_URL, or builds one from the DB_* parts.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// =============================================================================
// LOGGING
// =============================================================================

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// Logger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
