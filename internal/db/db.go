package db

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings carries the database connection parameters handed to the core by
// its caller. The core treats them as opaque beyond the connect call.
type Settings struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// SettingsFromEnv reads connection settings from the standard PG* variables.
// DATABASE_URL, when set, takes precedence in NewPool.
func SettingsFromEnv() Settings {
	port := 5432
	if raw := os.Getenv("PGPORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			port = parsed
		}
	}
	return Settings{
		Host:     os.Getenv("PGHOST"),
		Port:     port,
		Database: os.Getenv("PGDATABASE"),
		User:     os.Getenv("PGUSER"),
		Password: os.Getenv("PGPASSWORD"),
		SSLMode:  os.Getenv("PGSSLMODE"),
	}
}

// URL renders the settings as a pgx connection string.
func (s Settings) URL() string {
	host := s.Host
	if host == "" {
		host = "localhost"
	}
	port := s.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", host, port),
		Path:   "/" + s.Database,
	}
	if s.User != "" {
		u.User = url.UserPassword(s.User, s.Password)
	}
	if s.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(s.SSLMode)
	}
	return u.String()
}

// NewPool opens and pings a connection pool. DATABASE_URL overrides the
// individual settings when present.
func NewPool(ctx context.Context, settings Settings) (*pgxpool.Pool, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		if settings.Database == "" {
			return nil, fmt.Errorf("no database configured: set DATABASE_URL or PGDATABASE")
		}
		connStr = settings.URL()
	}

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
