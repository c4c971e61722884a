// Package database provides the PostgreSQL connection pool and schema migration.
//
// The template store and the River reindex queue share one pgxpool.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"legaldraft/internal/config"
	"legaldraft/internal/logger"
)

// Schema creates the template tables. Variables cascade with their template.
const Schema = `
CREATE TABLE IF NOT EXISTS templates (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	doctype         TEXT NOT NULL DEFAULT '',
	jurisdiction    TEXT NOT NULL DEFAULT '',
	similarity_tags TEXT[] NOT NULL DEFAULT '{}',
	body_md         TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS template_variables (
	id          BIGSERIAL PRIMARY KEY,
	template_id BIGINT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
	position    INT NOT NULL,
	key         TEXT NOT NULL,
	label       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	example     TEXT NOT NULL DEFAULT '',
	required    BOOLEAN NOT NULL DEFAULT FALSE,
	dtype       TEXT NOT NULL DEFAULT '',
	regex       TEXT NOT NULL DEFAULT '',
	enum_values TEXT[] NOT NULL DEFAULT '{}',
	UNIQUE (template_id, key)
);

CREATE INDEX IF NOT EXISTS template_variables_template_id_idx ON template_variables (template_id, position);
`

// NewPool creates and verifies the shared connection pool.
func NewPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	dsn := cfg.DSN()
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty: set %s", cfg.DSNEnv)
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = cfg.MinConns
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection pool created",
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Int32("min_conns", poolConfig.MinConns),
	)
	return pool, nil
}

// AutoMigrate creates the template schema and, when withRiver is set, the River queue tables.
func AutoMigrate(ctx context.Context, pool *pgxpool.Pool, withRiver bool) error {
	logger.Info("Running template schema migration...")
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("template schema migrate: %w", err)
	}
	if !withRiver {
		return nil
	}

	logger.Info("Running River migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("River migration completed", zap.Int("versions_applied", len(res.Versions)))
	} else {
		logger.Info("River migration: already up-to-date")
	}
	return nil
}
