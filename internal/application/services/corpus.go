package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/id"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// embedded text is capped so a huge page does not blow the embedding
// request limit
const maxEmbedChars = 4000

// CorpusService maintains the durable document corpus: every fetched
// result page is stored once with its embedding, so later runs can
// find prior context by vector similarity instead of refetching.
type CorpusService struct {
	docs     ports.DocumentRepository
	embedder ports.EmbeddingService
	ids      *id.Generator
}

// NewCorpusService creates a corpus service. embedder may be nil, in
// which case documents are stored without vectors and Similar is
// unavailable.
func NewCorpusService(docs ports.DocumentRepository, embedder ports.EmbeddingService) *CorpusService {
	return &CorpusService{
		docs:     docs,
		embedder: embedder,
		ids:      id.New(),
	}
}

// Index stores search results in the corpus, skipping hits without
// content and URLs already present. Returns the number of documents
// stored; individual failures are logged, not fatal.
func (s *CorpusService) Index(ctx context.Context, results []*ports.SearchResult) int {
	stored := 0
	for _, result := range results {
		if result == nil || strings.TrimSpace(result.Content) == "" {
			continue
		}

		existing, err := s.docs.GetByURL(ctx, result.URL)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Printf("corpus: lookup failed for %s: %v", result.URL, err)
			continue
		}
		if existing != nil {
			continue
		}

		doc := models.NewDocument(s.ids.GenerateDocumentID(), result.URL, result.Title, result.Snippet, result.Content)
		if s.embedder != nil {
			embedded, err := s.embedder.Embed(ctx, truncateForEmbedding(result.Content))
			if err != nil {
				log.Printf("corpus: embedding failed for %s: %v", result.URL, err)
			} else {
				doc.Embedding = embedded.Embedding
			}
		}

		if err := s.docs.Create(ctx, doc); err != nil {
			log.Printf("corpus: failed to store %s: %v", result.URL, err)
			continue
		}
		stored++
	}
	return stored
}

// Similar finds stored documents nearest to the query by embedding
// distance.
func (s *CorpusService) Similar(ctx context.Context, query string, limit int) ([]*models.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "query cannot be empty")
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if limit < 1 {
		limit = 5
	}

	embedded, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.docs.SearchSimilar(ctx, embedded.Embedding, limit)
}

func truncateForEmbedding(s string) string {
	if len(s) > maxEmbedChars {
		return s[:maxEmbedChars]
	}
	return s
}
