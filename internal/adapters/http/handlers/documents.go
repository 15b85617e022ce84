package handlers

import (
	"net/http"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

// DocumentHandler exposes similarity search over the document corpus
type DocumentHandler struct {
	corpus *services.CorpusService
}

// NewDocumentHandler creates a document handler. corpus may be nil
// when no embedding service is configured.
func NewDocumentHandler(corpus *services.CorpusService) *DocumentHandler {
	return &DocumentHandler{corpus: corpus}
}

// Search handles GET /api/v1/documents/search
func (h *DocumentHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.corpus == nil {
		respondDomainError(w, r, domain.ErrEmbeddingUnavailable)
		return
	}

	query := r.URL.Query().Get("q")
	limit := parseIntQuery(r, "limit", 5)

	docs, err := h.corpus.Similar(r.Context(), query, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	response := make([]dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, dto.FromDocument(doc))
	}

	respond(w, r, http.StatusOK, response)
}
