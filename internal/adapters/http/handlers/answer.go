package handlers

import (
	"net/http"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
)

// AnswerHandler serves the web-search answer application
type AnswerHandler struct {
	assistant *services.WebAnswerAssistant
}

func NewAnswerHandler(assistant *services.WebAnswerAssistant) *AnswerHandler {
	return &AnswerHandler{assistant: assistant}
}

// Answer handles POST /api/v1/answer
func (h *AnswerHandler) Answer(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[dto.AnswerRequest](r, w)
	if !ok {
		return
	}

	answer, err := h.assistant.Answer(r.Context(), req.Question)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	sources := make([]dto.SourceResponse, 0, len(answer.Sources))
	for _, source := range answer.Sources {
		sources = append(sources, dto.SourceResponse{
			Title:   source.Title,
			URL:     source.URL,
			Snippet: source.Snippet,
		})
	}

	respond(w, r, http.StatusOK, dto.AnswerResponse{
		Question: answer.Question,
		Answer:   answer.Answer,
		Sources:  sources,
	})
}
