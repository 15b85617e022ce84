package prompt

import (
	"context"
	"fmt"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// LLMServiceAdapter adapts ports.LLMService to dspy-go's LLM interface.
// Only Generate is implemented; the GEPA optimizer needs nothing else.
type LLMServiceAdapter struct {
	service ports.LLMService
	name    string
}

// NewLLMServiceAdapter creates a new LLM service adapter. The name
// distinguishes task and reflection adapters in provider metadata.
func NewLLMServiceAdapter(service ports.LLMService, name string) *LLMServiceAdapter {
	return &LLMServiceAdapter{service: service, name: name}
}

// Generate implements the dspy-go LLM interface
func (a *LLMServiceAdapter) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	resp, err := a.service.Chat(ctx, []ports.LLMMessage{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("llm service chat failed: %w", err)
	}

	return &core.LLMResponse{
		Content: resp.Content,
	}, nil
}

// GenerateWithJSON is not needed for instruction optimization
func (a *LLMServiceAdapter) GenerateWithJSON(ctx context.Context, prompt string, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithJSON not implemented")
}

// GenerateWithFunctions is not needed for instruction optimization
func (a *LLMServiceAdapter) GenerateWithFunctions(ctx context.Context, prompt string, functions []map[string]interface{}, opts ...core.GenerateOption) (map[string]interface{}, error) {
	return nil, fmt.Errorf("GenerateWithFunctions not implemented")
}

// CreateEmbedding is not needed here; embeddings go through
// ports.EmbeddingService.
func (a *LLMServiceAdapter) CreateEmbedding(ctx context.Context, input string, opts ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbedding not implemented, use ports.EmbeddingService")
}

// CreateEmbeddings is not needed here; embeddings go through
// ports.EmbeddingService.
func (a *LLMServiceAdapter) CreateEmbeddings(ctx context.Context, inputs []string, opts ...core.EmbeddingOption) (*core.BatchEmbeddingResult, error) {
	return nil, fmt.Errorf("CreateEmbeddings not implemented, use ports.EmbeddingService")
}

// StreamGenerate is not needed; optimization runs in batch mode
func (a *LLMServiceAdapter) StreamGenerate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerate not implemented")
}

// GenerateWithContent is not needed; programs here are text-only
func (a *LLMServiceAdapter) GenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	return nil, fmt.Errorf("GenerateWithContent not implemented")
}

// StreamGenerateWithContent is not needed; programs here are text-only
func (a *LLMServiceAdapter) StreamGenerateWithContent(ctx context.Context, content []core.ContentBlock, opts ...core.GenerateOption) (*core.StreamResponse, error) {
	return nil, fmt.Errorf("StreamGenerateWithContent not implemented")
}

// ProviderName returns the provider name
func (a *LLMServiceAdapter) ProviderName() string {
	return "prompt-mender"
}

// ModelID returns the adapter identifier
func (a *LLMServiceAdapter) ModelID() string {
	return a.name
}

// Capabilities returns the capabilities of this LLM
func (a *LLMServiceAdapter) Capabilities() []core.Capability {
	return []core.Capability{core.CapabilityChat, core.CapabilityCompletion}
}

// DatasetAdapter adapts []Example to dspy-go's core.Dataset interface
type DatasetAdapter struct {
	examples []Example
	index    int
}

// NewDatasetAdapter creates a new dataset adapter
func NewDatasetAdapter(examples []Example) *DatasetAdapter {
	return &DatasetAdapter{examples: examples}
}

// Next returns the next example in the dataset
func (d *DatasetAdapter) Next() (core.Example, bool) {
	if d.index >= len(d.examples) {
		return core.Example{}, false
	}
	ex := d.examples[d.index]
	d.index++

	return core.Example{
		Inputs:  convertToInterfaceMap(ex.Inputs),
		Outputs: convertToInterfaceMap(ex.Outputs),
	}, true
}

// Reset resets the dataset iterator
func (d *DatasetAdapter) Reset() {
	d.index = 0
}

func convertToInterfaceMap(m map[string]any) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// MetricAdapter adapts a Metric to dspy-go's core.Metric function type.
// core.Metric cannot return an error, so evaluation failures are routed
// to the onError hook and the example scores zero for that call; the
// hook is responsible for making the failure visible.
type MetricAdapter struct {
	metric  Metric
	onError func(err error)
}

// NewMetricAdapter creates a new metric adapter. onError may be nil.
func NewMetricAdapter(metric Metric, onError func(err error)) *MetricAdapter {
	return &MetricAdapter{metric: metric, onError: onError}
}

// ToCoreMetric converts to the dspy-go core.Metric function type
func (m *MetricAdapter) ToCoreMetric() core.Metric {
	return func(expected, actual map[string]interface{}) float64 {
		gold := Example{
			Inputs:  convertFromInterfaceMap(expected),
			Outputs: convertFromInterfaceMap(expected),
		}
		pred := Example{
			Inputs:  convertFromInterfaceMap(actual),
			Outputs: convertFromInterfaceMap(actual),
		}

		result, err := m.metric.Score(context.Background(), gold, pred, nil)
		if err != nil {
			if m.onError != nil {
				m.onError(err)
			}
			return 0.0
		}
		return result.Score
	}
}

func convertFromInterfaceMap(m map[string]interface{}) map[string]any {
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
