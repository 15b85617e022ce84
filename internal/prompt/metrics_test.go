package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

func TestExactMatchMetric(t *testing.T) {
	metric := &ExactMatchMetric{Field: "answer"}

	gold := Example{Outputs: map[string]any{"answer": "Paris"}}

	match, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "  Paris\n"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, match.Score)

	miss, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "Lyon"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, miss.Score)
	assert.Contains(t, miss.Feedback, "Paris")
	assert.Contains(t, miss.Feedback, "Lyon")
}

func TestExactMatchMetric_MissingField(t *testing.T) {
	metric := &ExactMatchMetric{Field: "answer"}

	_, err := metric.Score(context.Background(),
		Example{Outputs: map[string]any{}},
		Example{Outputs: map[string]any{"answer": "x"}}, nil)
	assert.Error(t, err)
}

// stubEmbedder maps known texts to fixed vectors
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) (*ports.EmbeddingResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &ports.EmbeddingResult{Embedding: e.vectors[text], Dimensions: 3}, nil
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

func TestSemanticSimilarityMetric(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"the capital is Paris": {1, 0, 0},
		"Paris is the capital": {1, 0, 0},
		"a kind of cheese":     {0, 1, 0},
	}}
	metric := NewSemanticSimilarityMetric("answer", embedder)

	gold := Example{Outputs: map[string]any{"answer": "the capital is Paris"}}

	same, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "Paris is the capital"}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, same.Score, 0.001)
	assert.Contains(t, same.Feedback, "cosine similarity")

	far, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "a kind of cheese"}}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, far.Score, 0.001)
}

func TestSemanticSimilarityMetric_NegativeCosineClamped(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"yes": {1, 0, 0},
		"no":  {-1, 0, 0},
	}}
	metric := NewSemanticSimilarityMetric("answer", embedder)

	score, err := metric.Score(context.Background(),
		Example{Outputs: map[string]any{"answer": "yes"}},
		Example{Outputs: map[string]any{"answer": "no"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Score)
}

func TestSemanticSimilarityMetric_EmbedderFailure(t *testing.T) {
	metric := NewSemanticSimilarityMetric("answer", &stubEmbedder{err: errors.New("embedding down")})

	_, err := metric.Score(context.Background(),
		Example{Outputs: map[string]any{"answer": "a"}},
		Example{Outputs: map[string]any{"answer": "b"}}, nil)
	assert.Error(t, err)
}

func TestSemanticSimilarityMetric_WordOverlapFallback(t *testing.T) {
	metric := NewSemanticSimilarityMetric("answer", nil)

	gold := Example{Outputs: map[string]any{"answer": "go was released in 2009"}}

	exact, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "Go was released in 2009"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, exact.Score)

	partial, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "go appeared in 2009"}}, nil)
	require.NoError(t, err)
	assert.Greater(t, partial.Score, 0.0)
	assert.Less(t, partial.Score, 1.0)

	disjoint, err := metric.Score(context.Background(), gold,
		Example{Outputs: map[string]any{"answer": "unrelated text entirely"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, disjoint.Score)
}
