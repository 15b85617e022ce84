package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// OptimizationHandler exposes optimization runs over the API
type OptimizationHandler struct {
	optimizer  *services.OptimizationService
	trainsets  *services.TrainsetService
	judgeLLM   ports.LLMService
	programDir string
}

func NewOptimizationHandler(optimizer *services.OptimizationService, trainsets *services.TrainsetService, judgeLLM ports.LLMService, programDir string) *OptimizationHandler {
	return &OptimizationHandler{
		optimizer:  optimizer,
		trainsets:  trainsets,
		judgeLLM:   judgeLLM,
		programDir: programDir,
	}
}

// Start handles POST /api/v1/optimizations. The run executes in the
// background; progress streams over the run's websocket.
func (h *OptimizationHandler) Start(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[dto.StartOptimizationRequest](r, w)
	if !ok {
		return
	}

	spec, err := services.BuildSpec(req.App, h.judgeLLM, h.trainsets)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("%s optimization", req.App)
	}

	run, err := h.optimizer.OptimizeAsync(r.Context(), name, spec, h.saveArtifact)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, http.StatusAccepted, dto.FromOptimizationRun(run))
}

// saveArtifact persists the winning program when a run completes
func (h *OptimizationHandler) saveArtifact(run *models.OptimizationRun, program *prompt.CompiledProgram, err error) {
	if err != nil || program == nil {
		return
	}
	path := services.ProgramPath(h.programDir, run.App)
	if saveErr := program.Save(path); saveErr != nil {
		log.Printf("optimization: failed to save program artifact for run %s: %v", run.ID, saveErr)
		return
	}
	log.Printf("optimization: saved program artifact %s (score %.3f)", path, run.BestScore)
}

// List handles GET /api/v1/optimizations
func (h *OptimizationHandler) List(w http.ResponseWriter, r *http.Request) {
	app := r.URL.Query().Get("app")
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.optimizer.ListRuns(r.Context(), app, limit, offset)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	responses := make([]*dto.OptimizationRunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, dto.FromOptimizationRun(run))
	}
	respond(w, r, http.StatusOK, responses)
}

// Get handles GET /api/v1/optimizations/{id}
func (h *OptimizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	run, err := h.optimizer.GetRun(r.Context(), runID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, dto.FromOptimizationRun(run))
}

// Candidates handles GET /api/v1/optimizations/{id}/candidates
func (h *OptimizationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	candidates, err := h.optimizer.GetCandidates(r.Context(), runID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	responses := make([]*dto.PromptCandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		responses = append(responses, dto.FromPromptCandidate(candidate))
	}
	respond(w, r, http.StatusOK, responses)
}

// Best handles GET /api/v1/optimizations/{id}/best
func (h *OptimizationHandler) Best(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Run ID")
	if !ok {
		return
	}

	best, err := h.optimizer.GetBestCandidate(r.Context(), runID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, dto.FromPromptCandidate(best))
}
