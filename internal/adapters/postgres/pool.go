package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a connection pool with a UTC session timezone so
// TIMESTAMP columns behave the same everywhere.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS optimization_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		app TEXT NOT NULL,
		baseline_score DOUBLE PRECISION,
		best_score DOUBLE PRECISION,
		iterations INTEGER NOT NULL DEFAULT 0,
		max_iterations INTEGER NOT NULL DEFAULT 0,
		config JSONB,
		meta JSONB,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_optimization_runs_app ON optimization_runs (app, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS prompt_candidates (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES optimization_runs(id),
		iteration INTEGER NOT NULL DEFAULT 0,
		prompt_text TEXT NOT NULL,
		score DOUBLE PRECISION,
		criterion_scores JSONB,
		evaluation_count INTEGER NOT NULL DEFAULT 0,
		meta JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prompt_candidates_run ON prompt_candidates (run_id, score DESC)`,
	`CREATE TABLE IF NOT EXISTS training_examples (
		id TEXT PRIMARY KEY,
		app TEXT NOT NULL,
		inputs JSONB,
		outputs JSONB,
		source TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_training_examples_app ON training_examples (app, created_at)`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		snippet TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		embedding vector,
		fetched_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		deleted_at TIMESTAMPTZ
	)`,
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
