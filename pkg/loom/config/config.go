// Package config assembles a loom service from declarative server
// configuration, loaded from the environment or built programmatically with
// functional options.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomcms/loom/pkg/loom"
	"github.com/loomcms/loom/pkg/loom/audit"
	"github.com/loomcms/loom/pkg/loom/repo/memory"
	"github.com/loomcms/loom/pkg/loom/repo/postgres"
	"github.com/loomcms/loom/pkg/loom/repo/sqlite"
)

// ServerConfig holds every knob the server binary needs.
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// DatabaseType selects the repository backend: memory, postgres or
	// sqlite.
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DatabaseURL  string `env:"DATABASE_URL"`
	SQLitePath   string `env:"SQLITE_PATH" env-default:"loom.db"`

	// AuthSecret enables JWT verification when non-empty; without it the
	// server falls back to header-based actor identification (development
	// only).
	AuthSecret string `env:"AUTH_SECRET"`

	// ContentApproval gates standard actors' publish requests behind a
	// privileged countersign.
	ContentApproval bool `env:"CONTENT_APPROVAL" env-default:"false"`

	// AuditLog enables the structured activity log sink.
	AuditLog bool `env:"AUDIT_LOG" env-default:"true"`
}

// Option mutates a ServerConfig during construction.
type Option func(*ServerConfig) error

// New builds a ServerConfig from defaults plus options.
func New(options ...Option) (*ServerConfig, error) {
	c := &ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		SQLitePath:   "loom.db",
		AuditLog:     true,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load reads the configuration from environment variables.
func Load() (*ServerConfig, error) {
	var c ServerConfig
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *ServerConfig) validate() error {
	switch c.DatabaseType {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
	default:
		return fmt.Errorf("database type must be 'memory', 'postgres' or 'sqlite', got: %s", c.DatabaseType)
	}
	return nil
}

// BuildService assembles the repository, audit sink and settings into a
// ready service. The returned cleanup function releases storage resources.
func (c *ServerConfig) BuildService(ctx context.Context) (loom.Service, func(), error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}

	var (
		repo    loom.Repository
		cleanup = func() {}
	)
	switch c.DatabaseType {
	case "memory":
		repo = memory.New()
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		repo = postgres.NewWithPool(pool)
		cleanup = pool.Close
	case "sqlite":
		db, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		repo = db
		cleanup = func() { _ = db.Close() }
	}

	options := []loom.Option{
		loom.WithRepository(repo),
		loom.WithSettings(loom.StaticSettings{ContentApproval: c.ContentApproval}),
	}
	if c.AuditLog {
		options = append(options, loom.WithAuditSink(audit.NewLogSink(slog.Default())))
	}

	svc, err := loom.New(ctx, options...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
