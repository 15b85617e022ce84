package prompt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMServiceAdapter_Generate(t *testing.T) {
	svc := &stubLLM{responses: []string{"generated text"}}
	adapter := NewLLMServiceAdapter(svc, "task")

	resp, err := adapter.Generate(context.Background(), "some prompt")
	require.NoError(t, err)
	assert.Equal(t, "generated text", resp.Content)
	assert.Equal(t, "task", adapter.ModelID())
	assert.Equal(t, "prompt-mender", adapter.ProviderName())
}

func TestLLMServiceAdapter_GenerateError(t *testing.T) {
	svc := &stubLLM{err: errors.New("down")}
	adapter := NewLLMServiceAdapter(svc, "task")

	_, err := adapter.Generate(context.Background(), "some prompt")
	assert.Error(t, err)
}

func TestDatasetAdapter_Iteration(t *testing.T) {
	ds := NewDatasetAdapter([]Example{
		{Inputs: map[string]any{"question": "a"}},
		{Inputs: map[string]any{"question": "b"}},
	})

	first, ok := ds.Next()
	require.True(t, ok)
	assert.Equal(t, "a", first.Inputs["question"])

	second, ok := ds.Next()
	require.True(t, ok)
	assert.Equal(t, "b", second.Inputs["question"])

	_, ok = ds.Next()
	assert.False(t, ok)

	ds.Reset()
	again, ok := ds.Next()
	require.True(t, ok)
	assert.Equal(t, "a", again.Inputs["question"])
}

func TestMetricAdapter_Score(t *testing.T) {
	metric := MetricFunc(func(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
		return ScoreWithFeedback{Score: 0.75}, nil
	})

	coreMetric := NewMetricAdapter(metric, nil).ToCoreMetric()
	score := coreMetric(map[string]interface{}{"answer": "x"}, map[string]interface{}{"answer": "y"})
	assert.Equal(t, 0.75, score)
}

func TestMetricAdapter_ErrorHook(t *testing.T) {
	evalErr := errors.New("judge exploded")
	metric := MetricFunc(func(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
		return ScoreWithFeedback{}, evalErr
	})

	var seen error
	coreMetric := NewMetricAdapter(metric, func(err error) { seen = err }).ToCoreMetric()

	score := coreMetric(map[string]interface{}{}, map[string]interface{}{})
	assert.Equal(t, 0.0, score)
	require.Error(t, seen)
	assert.True(t, errors.Is(seen, evalErr))
}
