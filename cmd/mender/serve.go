package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/embedding"
	httpadapter "github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/postgres"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/tracing"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
)

// serveCmd starts the HTTP API server
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the Prompt Mender HTTP API server.

The server exposes the memo template and web answer apps, trainset
management, and optimization runs with websocket progress streaming.

Required configuration:
  - PostgreSQL database (MENDER_POSTGRES_URL)
  - LLM endpoint (MENDER_LLM_URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// runServer initializes and starts the HTTP API server
func runServer(ctx context.Context) error {
	log.Println("Starting Prompt Mender API server...")
	log.Printf("  HTTP:     http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("  Task LLM: %s", cfg.LLM.URL)
	if cfg.Judge.URL != "" {
		log.Printf("  Judge:    %s", cfg.Judge.URL)
	}
	log.Println()

	// Initialize OpenTelemetry tracing
	shutdown, err := tracing.InitTracer("prompt-mender-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize tracing: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer: %v", err)
			}
		}()
		log.Println("OpenTelemetry tracing initialized")
	}

	if cfg.Database.PostgresURL == "" {
		return fmt.Errorf("server mode requires PostgreSQL. Set MENDER_POSTGRES_URL")
	}

	// Initialize database connection pool
	log.Println("Connecting to PostgreSQL...")
	pool, err := postgres.Connect(ctx, cfg.Database.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("failed to ensure database schema: %w", err)
	}
	log.Println("Database connection established")

	// Initialize repositories
	runRepo := postgres.NewOptimizationRepository(pool)
	exampleRepo := postgres.NewTrainingExampleRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)

	// Initialize LLM services
	taskLLM := llm.NewService(llmClient)
	judgeLLM := llm.NewService(judgeClient)
	log.Println("LLM services initialized")

	// Initialize search adapter
	searchService := newSearchService()

	// Initialize document corpus, with vectors when embeddings are configured
	var corpus *services.CorpusService
	if cfg.IsEmbeddingConfigured() {
		embedder := embedding.NewClient(
			cfg.Embedding.URL,
			cfg.Embedding.APIKey,
			cfg.Embedding.Model,
			cfg.Embedding.Dimensions,
		)
		corpus = services.NewCorpusService(documentRepo, embedder)
		log.Println("Embedding client initialized")
	} else {
		corpus = services.NewCorpusService(documentRepo, nil)
	}

	// Initialize application services
	trainsets := services.NewTrainsetService(searchService, exampleRepo, cfg.Paths.TrainsetDir)
	optimizer := services.NewOptimizationService(runRepo, taskLLM, judgeLLM, cfg.Optimizer)

	memo := services.NewMemoAssistant(cfg.Paths.ProgramDir, taskLLM)
	webAnswer := services.NewWebAnswerAssistant(cfg.Paths.ProgramDir, taskLLM, searchService, cfg.Search.MaxResults).
		WithCorpus(corpus)
	log.Println("Application services initialized")

	// Initialize HTTP server
	server := httpadapter.NewServer(
		cfg,
		pool,
		llmClient,
		judgeLLM,
		memo,
		webAnswer,
		trainsets,
		optimizer,
		corpus,
		version,
	)

	// Set up graceful shutdown
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	serverErrors := make(chan error, 1)

	go func() {
		log.Printf("HTTP server listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
		log.Println("Shutting down gracefully...")

		shutdownCtx, shutdownCancel := context.WithTimeout(serverCtx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		log.Println("Server stopped")
		return nil
	}
}
