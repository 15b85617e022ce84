package handlers

import (
	"net/http"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
)

// MemoHandler serves the voice-memo template application
type MemoHandler struct {
	assistant *services.MemoAssistant
}

func NewMemoHandler(assistant *services.MemoAssistant) *MemoHandler {
	return &MemoHandler{assistant: assistant}
}

// GenerateTemplate handles POST /api/v1/memo/template
func (h *MemoHandler) GenerateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[dto.GenerateTemplateRequest](r, w)
	if !ok {
		return
	}

	template, err := h.assistant.GenerateTemplate(r.Context(), req.Requirements)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, dto.GenerateTemplateResponse{
		Requirements: req.Requirements,
		Template:     template,
	})
}

// AnalyzeRequirement handles POST /api/v1/memo/analyze
func (h *MemoHandler) AnalyzeRequirement(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[dto.AnalyzeRequirementRequest](r, w)
	if !ok {
		return
	}

	facets, err := h.assistant.AnalyzeRequirement(r.Context(), req.Requirement)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, dto.AnalyzeRequirementResponse{
		Requirement: req.Requirement,
		Language:    facets.Language,
		Style:       facets.Style,
		Tone:        facets.Tone,
		Audience:    facets.Audience,
		Verbosity:   facets.Verbosity,
	})
}
