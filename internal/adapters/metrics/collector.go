package metrics

import (
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// PredictCollector feeds prompt module executions into Prometheus
type PredictCollector struct {
	App string
}

func NewPredictCollector(app string) *PredictCollector {
	return &PredictCollector{App: app}
}

// RecordExecution implements prompt.MetricsCollector
func (c *PredictCollector) RecordExecution(span prompt.Span, inputs, outputs map[string]any, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	JudgeEvaluationsTotal.WithLabelValues(c.App, status).Inc()
	if span != nil {
		span.SetAttribute("app", c.App)
		span.SetAttribute("input_fields", len(inputs))
		span.SetAttribute("output_fields", len(outputs))
	}
}
