package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/llm"
)

const healthCheckTimeout = 5 * time.Second

type HealthHandler struct {
	db        *pgxpool.Pool
	llmClient *llm.Client
	version   string
}

func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

func NewHealthHandlerWithDeps(db *pgxpool.Pool, llmClient *llm.Client, version string) *HealthHandler {
	return &HealthHandler{db: db, llmClient: llmClient, version: version}
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type DetailedHealthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Services map[string]ServiceHealth `json:"services"`
}

type ServiceHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	services := make(map[string]ServiceHealth)
	overall := "ok"

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			services["database"] = ServiceHealth{Status: "down", Error: err.Error()}
			overall = "degraded"
		} else {
			services["database"] = ServiceHealth{Status: "ok"}
		}
	}

	if h.llmClient != nil {
		if err := h.llmClient.Ping(ctx); err != nil {
			services["llm"] = ServiceHealth{Status: "down", Error: err.Error()}
			overall = "degraded"
		} else {
			services["llm"] = ServiceHealth{Status: "ok"}
		}
	}

	status := http.StatusOK
	if overall != "ok" {
		status = http.StatusServiceUnavailable
	}
	respond(w, r, status, DetailedHealthResponse{
		Status:   overall,
		Version:  h.version,
		Services: services,
	})
}
