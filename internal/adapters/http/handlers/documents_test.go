package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/http/dto"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

type memoryDocumentRepo struct {
	docs []*models.Document
}

func (r *memoryDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	r.docs = append(r.docs, doc)
	return nil
}

func (r *memoryDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	for _, doc := range r.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
}

func (r *memoryDocumentRepo) GetByURL(ctx context.Context, url string) (*models.Document, error) {
	for _, doc := range r.docs {
		if doc.URL == url {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: document for %s", domain.ErrNotFound, url)
}

func (r *memoryDocumentRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*models.Document, error) {
	if limit > len(r.docs) {
		limit = len(r.docs)
	}
	return r.docs[:limit], nil
}

func (r *memoryDocumentRepo) Delete(ctx context.Context, id string) error {
	return nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	return &ports.EmbeddingResult{Embedding: []float32{1, 0, 0}, Dimensions: 3}, nil
}

func (fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	results := make([]*ports.EmbeddingResult, len(texts))
	for i := range texts {
		results[i] = &ports.EmbeddingResult{Embedding: []float32{1, 0, 0}, Dimensions: 3}
	}
	return results, nil
}

func (fixedEmbedder) GetDimensions() int { return 3 }

func TestDocumentHandler_Search(t *testing.T) {
	repo := &memoryDocumentRepo{docs: []*models.Document{
		models.NewDocument("doc_1", "https://go.dev/blog", "Go blog", "release notes", "Go 1.25 content"),
	}}
	handler := NewDocumentHandler(services.NewCorpusService(repo, fixedEmbedder{}))

	req := httptest.NewRequest("GET", "/api/v1/documents/search?q=go+release", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var response []dto.DocumentResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response) != 1 {
		t.Fatalf("expected 1 document, got %d", len(response))
	}
	if response[0].URL != "https://go.dev/blog" {
		t.Errorf("unexpected document URL: %s", response[0].URL)
	}
}

func TestDocumentHandler_Search_EmptyQuery(t *testing.T) {
	handler := NewDocumentHandler(services.NewCorpusService(&memoryDocumentRepo{}, fixedEmbedder{}))

	req := httptest.NewRequest("GET", "/api/v1/documents/search", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestDocumentHandler_Search_NoEmbeddingService(t *testing.T) {
	handler := NewDocumentHandler(services.NewCorpusService(&memoryDocumentRepo{}, nil))

	req := httptest.NewRequest("GET", "/api/v1/documents/search?q=anything", nil)
	rr := httptest.NewRecorder()

	handler.Search(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}
