package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

func TestAnswerHandler_Answer(t *testing.T) {
	search := &stubSearch{results: []*ports.SearchResult{
		{Title: "Release notes", URL: "https://go.dev/doc/go1.25", Snippet: "August 2025"},
	}}
	llm := &stubLLM{responses: []string{"answer: It was released in August 2025 [[1]]."}}
	handler := NewAnswerHandler(newTestWebAnswerAssistant(llm, search))

	body := `{"question": "When was Go 1.25 released?"}`
	req := httptest.NewRequest("POST", "/api/v1/answer", strings.NewReader(body))
	rr := httptest.NewRecorder()

	handler.Answer(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response dto.AnswerResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !strings.Contains(response.Answer, "[[1]]") {
		t.Errorf("expected citation in answer, got %q", response.Answer)
	}
	if len(response.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(response.Sources))
	}
	if response.Sources[0].URL != "https://go.dev/doc/go1.25" {
		t.Errorf("unexpected source URL: %s", response.Sources[0].URL)
	}
}

func TestAnswerHandler_Answer_SearchUnavailable(t *testing.T) {
	search := &stubSearch{err: domain.ErrSearchUnavailable}
	handler := NewAnswerHandler(newTestWebAnswerAssistant(&stubLLM{}, search))

	req := httptest.NewRequest("POST", "/api/v1/answer", strings.NewReader(`{"question": "anything"}`))
	rr := httptest.NewRecorder()

	handler.Answer(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rr.Code)
	}
}

func TestAnswerHandler_Answer_EmptyQuestion(t *testing.T) {
	handler := NewAnswerHandler(newTestWebAnswerAssistant(&stubLLM{}, &stubSearch{}))

	req := httptest.NewRequest("POST", "/api/v1/answer", strings.NewReader(`{"question": "  "}`))
	rr := httptest.NewRecorder()

	handler.Answer(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestAnswerHandler_Answer_MsgpackNegotiation(t *testing.T) {
	search := &stubSearch{results: []*ports.SearchResult{
		{Title: "Source", URL: "https://example.com", Snippet: "snippet"},
	}}
	llm := &stubLLM{responses: []string{"answer: grounded [[1]]"}}
	handler := NewAnswerHandler(newTestWebAnswerAssistant(llm, search))

	req := httptest.NewRequest("POST", "/api/v1/answer", strings.NewReader(`{"question": "q"}`))
	req.Header.Set("Accept", "application/msgpack")
	rr := httptest.NewRecorder()

	handler.Answer(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Fatalf("expected msgpack content type, got %s", ct)
	}

	var response dto.AnswerResponse
	if err := msgpack.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode msgpack response: %v", err)
	}
	if response.Answer == "" {
		t.Error("expected a non-empty answer")
	}
}
