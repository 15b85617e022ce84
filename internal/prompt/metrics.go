package prompt

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// Example is a single evaluation example with inputs and expected or
// predicted outputs.
type Example struct {
	Inputs  map[string]any
	Outputs map[string]any
}

// Trace carries intermediate execution steps for metrics that inspect
// how an output was produced.
type Trace struct {
	Steps []TraceStep
}

// TraceStep is one recorded step of program execution
type TraceStep struct {
	ModuleName string
	Inputs     map[string]any
	Outputs    map[string]any
}

// ScoreWithFeedback is a score in [0, 1] plus textual feedback the
// optimizer can reflect on.
type ScoreWithFeedback struct {
	Score    float64
	Feedback string
}

// Metric evaluates a prediction against a gold example
type Metric interface {
	Score(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error)
}

// MetricFunc adapts a function to the Metric interface
type MetricFunc func(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error)

func (f MetricFunc) Score(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
	return f(ctx, gold, pred, trace)
}

// ExactMatchMetric scores 1.0 when the named output field matches the
// gold value after whitespace normalization, 0.0 otherwise.
type ExactMatchMetric struct {
	Field string
}

func (m *ExactMatchMetric) Score(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
	want, err := stringField(gold.Outputs, m.Field)
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("gold example: %w", err)
	}
	got, err := stringField(pred.Outputs, m.Field)
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("prediction: %w", err)
	}

	if strings.TrimSpace(want) == strings.TrimSpace(got) {
		return ScoreWithFeedback{Score: 1.0, Feedback: "exact match"}, nil
	}
	return ScoreWithFeedback{
		Score:    0.0,
		Feedback: fmt.Sprintf("expected %q, got %q", truncate(want, 120), truncate(got, 120)),
	}, nil
}

// SemanticSimilarityMetric scores the named output field by cosine
// similarity of embeddings. Without an embedding service it falls back
// to word-overlap similarity.
type SemanticSimilarityMetric struct {
	Field    string
	embedder ports.EmbeddingService
}

// NewSemanticSimilarityMetric creates a similarity metric over field.
// embedder may be nil.
func NewSemanticSimilarityMetric(field string, embedder ports.EmbeddingService) *SemanticSimilarityMetric {
	return &SemanticSimilarityMetric{Field: field, embedder: embedder}
}

func (m *SemanticSimilarityMetric) Score(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
	want, err := stringField(gold.Outputs, m.Field)
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("gold example: %w", err)
	}
	got, err := stringField(pred.Outputs, m.Field)
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("prediction: %w", err)
	}

	if m.embedder == nil {
		similarity := wordOverlapSimilarity(want, got)
		return ScoreWithFeedback{
			Score:    similarity,
			Feedback: fmt.Sprintf("word overlap %.2f between %q and %q", similarity, truncate(want, 120), truncate(got, 120)),
		}, nil
	}

	embeddings, err := m.embedder.EmbedBatch(ctx, []string{want, got})
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("embedding failed: %w", err)
	}
	if len(embeddings) != 2 {
		return ScoreWithFeedback{}, fmt.Errorf("expected 2 embeddings, got %d", len(embeddings))
	}

	similarity := cosineSimilarity(embeddings[0].Embedding, embeddings[1].Embedding)
	if similarity < 0 {
		similarity = 0
	}
	return ScoreWithFeedback{
		Score:    similarity,
		Feedback: fmt.Sprintf("cosine similarity %.2f between %q and %q", similarity, truncate(want, 120), truncate(got, 120)),
	}, nil
}

// cosineSimilarity returns 0 for mismatched or zero vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// wordOverlapSimilarity is Jaccard similarity over lowercased words
func wordOverlapSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}

	setA := make(map[string]bool)
	for _, word := range strings.Fields(a) {
		setA[word] = true
	}
	setB := make(map[string]bool)
	for _, word := range strings.Fields(b) {
		setB[word] = true
	}

	intersection := 0
	for word := range setA {
		if setB[word] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func stringField(fields map[string]any, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("field %q missing", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q is %T, want string", name, v)
	}
	return s, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
