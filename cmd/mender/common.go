package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/postgres"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/search"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/config"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg         *config.Config
	llmClient   *llm.Client
	judgeClient *llm.Client
)

// initDB initializes a database connection pool for CLI commands
func initDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Database.PostgresURL == "" {
		return nil, fmt.Errorf("PostgreSQL connection required. Set MENDER_POSTGRES_URL")
	}

	pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return nil, err
	}

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	return pool, nil
}

// newSearchService builds the web search adapter from config
func newSearchService() ports.SearchService {
	opts := []search.Option{search.WithRegion(cfg.Search.Region)}
	if cfg.Search.TimeoutSecs > 0 {
		opts = append(opts, search.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second,
		}))
	}
	return search.NewDuckDuckGo(opts...)
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
