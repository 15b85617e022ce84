package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/encoding"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
)

// respond writes data in the negotiated content type
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	_ = encoding.Write(w, r, status, data)
}

// respondError writes an error response in the negotiated content type
func respondError(w http.ResponseWriter, r *http.Request, errorType, message string, status int) {
	_ = encoding.Write(w, r, status, dto.NewErrorResponse(errorType, message, status))
}

// respondDomainError maps domain sentinel errors to HTTP statuses
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrEmptyTrainset), errors.Is(err, domain.ErrMalformedExample):
		respondError(w, r, "invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRunNotFound),
		errors.Is(err, domain.ErrTrainsetNotFound), errors.Is(err, domain.ErrProgramNotCompiled):
		respondError(w, r, "not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrRunStillRunning):
		respondError(w, r, "run_still_running", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		respondError(w, r, "embedding_unavailable", err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrJudgeUnavailable),
		errors.Is(err, domain.ErrSearchUnavailable):
		respondError(w, r, "upstream_unavailable", err.Error(), http.StatusBadGateway)
	default:
		respondError(w, r, "internal_error", err.Error(), http.StatusInternalServerError)
	}
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, name string, defaultValue int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// validateURLParam validates and returns a URL parameter
func validateURLParam(r *http.Request, w http.ResponseWriter, paramName, errorField string) (string, bool) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		respondError(w, r, "invalid_request", errorField+" is required", http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// decodeRequest decodes a JSON or msgpack request body
func decodeRequest[T any](r *http.Request, w http.ResponseWriter) (*T, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1024*1024)

	var req T
	if err := encoding.Read(r, &req); err != nil {
		respondError(w, r, "invalid_request", "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}
