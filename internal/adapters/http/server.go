package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/handlers"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/middleware"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/config"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	db         *pgxpool.Pool
	llmClient  *llm.Client
	judgeLLM   ports.LLMService
	memo       *services.MemoAssistant
	webAnswer  *services.WebAnswerAssistant
	trainsets  *services.TrainsetService
	optimizer  *services.OptimizationService
	corpus     *services.CorpusService
	version    string
}

func NewServer(
	cfg *config.Config,
	db *pgxpool.Pool,
	llmClient *llm.Client,
	judgeLLM ports.LLMService,
	memo *services.MemoAssistant,
	webAnswer *services.WebAnswerAssistant,
	trainsets *services.TrainsetService,
	optimizer *services.OptimizationService,
	corpus *services.CorpusService,
	version string,
) *Server {
	s := &Server{
		config:    cfg,
		db:        db,
		llmClient: llmClient,
		judgeLLM:  judgeLLM,
		memo:      memo,
		webAnswer: webAnswer,
		trainsets: trainsets,
		optimizer: optimizer,
		corpus:    corpus,
		version:   version,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(s.config.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	healthHandler := handlers.NewHealthHandlerWithDeps(s.db, s.llmClient, s.version)
	r.Get("/health", healthHandler.Handle)
	r.Get("/health/detailed", healthHandler.HandleDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		memoHandler := handlers.NewMemoHandler(s.memo)
		r.Post("/memo/template", memoHandler.GenerateTemplate)
		r.Post("/memo/analyze", memoHandler.AnalyzeRequirement)

		answerHandler := handlers.NewAnswerHandler(s.webAnswer)
		r.Post("/answer", answerHandler.Answer)

		documentHandler := handlers.NewDocumentHandler(s.corpus)
		r.Get("/documents/search", documentHandler.Search)

		trainsetHandler := handlers.NewTrainsetHandler(s.trainsets)
		r.Post("/trainsets/web_answer/build", trainsetHandler.Build)
		r.Get("/trainsets/{app}", trainsetHandler.Stats)
		r.Get("/trainsets/{app}/examples", trainsetHandler.Examples)

		optimizationHandler := handlers.NewOptimizationHandler(s.optimizer, s.trainsets, s.judgeLLM, s.config.Paths.ProgramDir)
		r.Post("/optimizations", optimizationHandler.Start)
		r.Get("/optimizations", optimizationHandler.List)
		r.Get("/optimizations/{id}", optimizationHandler.Get)
		r.Get("/optimizations/{id}/candidates", optimizationHandler.Candidates)
		r.Get("/optimizations/{id}/best", optimizationHandler.Best)

		progressHandler := handlers.NewOptimizationProgressHandler(s.optimizer, s.config.Server.CORSOrigins)
		r.Get("/optimizations/{id}/progress", progressHandler.Handle)
	})

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // no write timeout, progress websockets stay open
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
