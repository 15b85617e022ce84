package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

type stubDocumentRepo struct {
	byURL     map[string]*models.Document
	createErr error
}

func newStubDocumentRepo() *stubDocumentRepo {
	return &stubDocumentRepo{byURL: make(map[string]*models.Document)}
}

func (r *stubDocumentRepo) Create(ctx context.Context, doc *models.Document) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byURL[doc.URL] = doc
	return nil
}

func (r *stubDocumentRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	for _, doc := range r.byURL {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
}

func (r *stubDocumentRepo) GetByURL(ctx context.Context, url string) (*models.Document, error) {
	if doc, ok := r.byURL[url]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("%w: document for %s", domain.ErrNotFound, url)
}

func (r *stubDocumentRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*models.Document, error) {
	docs := make([]*models.Document, 0, len(r.byURL))
	for _, doc := range r.byURL {
		docs = append(docs, doc)
		if len(docs) == limit {
			break
		}
	}
	return docs, nil
}

func (r *stubDocumentRepo) Delete(ctx context.Context, id string) error {
	for url, doc := range r.byURL {
		if doc.ID == id {
			delete(r.byURL, url)
			return nil
		}
	}
	return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
}

type stubEmbedder struct {
	texts []string
	err   error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.texts = append(e.texts, text)
	return &ports.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}, Dimensions: 3}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]*ports.EmbeddingResult, error) {
	results := make([]*ports.EmbeddingResult, 0, len(texts))
	for _, text := range texts {
		result, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (e *stubEmbedder) GetDimensions() int { return 3 }

func TestCorpusIndexStoresNewDocuments(t *testing.T) {
	repo := newStubDocumentRepo()
	embedder := &stubEmbedder{}
	corpus := NewCorpusService(repo, embedder)

	stored := corpus.Index(context.Background(), []*ports.SearchResult{
		{Title: "Go release", URL: "https://go.dev/blog", Snippet: "notes", Content: "Go 1.25 adds things"},
		{Title: "No content", URL: "https://example.com/empty", Content: "   "},
	})

	assert.Equal(t, 1, stored)
	doc, err := repo.GetByURL(context.Background(), "https://go.dev/blog")
	require.NoError(t, err)
	assert.Equal(t, "Go release", doc.Title)
	assert.Len(t, doc.Embedding, 3)
	require.Len(t, embedder.texts, 1)
}

func TestCorpusIndexSkipsExistingURL(t *testing.T) {
	repo := newStubDocumentRepo()
	corpus := NewCorpusService(repo, &stubEmbedder{})

	results := []*ports.SearchResult{
		{Title: "Page", URL: "https://example.com/a", Content: "body"},
	}
	require.Equal(t, 1, corpus.Index(context.Background(), results))
	assert.Equal(t, 0, corpus.Index(context.Background(), results))
	assert.Len(t, repo.byURL, 1)
}

func TestCorpusIndexWithoutEmbedder(t *testing.T) {
	repo := newStubDocumentRepo()
	corpus := NewCorpusService(repo, nil)

	stored := corpus.Index(context.Background(), []*ports.SearchResult{
		{Title: "Page", URL: "https://example.com/a", Content: "body"},
	})

	assert.Equal(t, 1, stored)
	doc, err := repo.GetByURL(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, doc.Embedding)
}

func TestCorpusIndexKeepsDocumentWhenEmbeddingFails(t *testing.T) {
	repo := newStubDocumentRepo()
	corpus := NewCorpusService(repo, &stubEmbedder{err: errors.New("embedding down")})

	stored := corpus.Index(context.Background(), []*ports.SearchResult{
		{Title: "Page", URL: "https://example.com/a", Content: "body"},
	})

	assert.Equal(t, 1, stored)
	doc, err := repo.GetByURL(context.Background(), "https://example.com/a")
	require.NoError(t, err)
	assert.Nil(t, doc.Embedding)
}

func TestCorpusSimilar(t *testing.T) {
	repo := newStubDocumentRepo()
	embedder := &stubEmbedder{}
	corpus := NewCorpusService(repo, embedder)

	corpus.Index(context.Background(), []*ports.SearchResult{
		{Title: "Page", URL: "https://example.com/a", Content: "generics in Go"},
	})

	docs, err := corpus.Similar(context.Background(), "go generics", 5)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestCorpusSimilarEmptyQuery(t *testing.T) {
	corpus := NewCorpusService(newStubDocumentRepo(), &stubEmbedder{})

	_, err := corpus.Similar(context.Background(), "  ", 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCorpusSimilarWithoutEmbedder(t *testing.T) {
	corpus := NewCorpusService(newStubDocumentRepo(), nil)

	_, err := corpus.Similar(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
