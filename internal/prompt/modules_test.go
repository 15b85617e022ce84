package prompt

import (
	"context"
	"testing"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSpan struct {
	ended bool
	err   error
	attrs map[string]any
}

func (s *recordingSpan) End()               { s.ended = true }
func (s *recordingSpan) SetError(err error) { s.err = err }
func (s *recordingSpan) SetAttribute(key string, value any) {
	if s.attrs == nil {
		s.attrs = make(map[string]any)
	}
	s.attrs[key] = value
}

type recordingTracer struct {
	spans []*recordingSpan
}

func (t *recordingTracer) StartSpan(ctx context.Context, name string) Span {
	span := &recordingSpan{}
	t.spans = append(t.spans, span)
	return span
}

type recordingCollector struct {
	calls int
	errs  []error
}

func (c *recordingCollector) RecordExecution(span Span, inputs, outputs map[string]any, err error) {
	c.calls++
	c.errs = append(c.errs, err)
}

func TestPredictModule_HooksFireOnProcess(t *testing.T) {
	sig, err := ParseSignature("question -> answer")
	require.NoError(t, err)

	// dspy-go's Predict nil-derefs without a registered default LLM, so
	// install a stub for the duration of the test
	prevLLM := core.GetDefaultLLM()
	core.SetDefaultLLM(NewLLMServiceAdapter(&stubLLM{responses: []string{"answer: x"}}, "task"))
	defer core.SetDefaultLLM(prevLLM)

	tracer := &recordingTracer{}
	collector := &recordingCollector{}
	module := NewPredictModule(sig, WithTracer(tracer), WithMetrics(collector))

	// outcome depends on the registered default LLM; the hooks must
	// fire either way
	_, _ = module.Process(context.Background(), map[string]any{"question": "x"})

	require.Len(t, tracer.spans, 1)
	assert.True(t, tracer.spans[0].ended)
	assert.Equal(t, 1, collector.calls)
}

func TestPredictModule_NoHooksByDefault(t *testing.T) {
	sig, err := ParseSignature("question -> answer")
	require.NoError(t, err)

	module := NewPredictModule(sig)
	assert.Nil(t, module.tracer)
	assert.Nil(t, module.metrics)
}
