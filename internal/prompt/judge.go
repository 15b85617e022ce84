package prompt

import (
	"context"
	"fmt"
	"log"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// FieldExtractor pulls the material a judge reviews out of a gold
// example and a prediction, as ordered name/value pairs.
type FieldExtractor func(gold, pred Example) ([]JudgeField, error)

// Diagnostic logs extra detail when a criterion scores below a
// threshold. Used to surface systematic failures such as language
// drift without failing the evaluation.
type Diagnostic struct {
	Criterion string
	Threshold float64
}

// JudgeMetric scores predictions by asking a judge LLM to fill in a
// rubric. The judge service is injected explicitly; nothing here
// touches process-global model configuration.
type JudgeMetric struct {
	judge       ports.LLMService
	rubric      Rubric
	extract     FieldExtractor
	diagnostics []Diagnostic
	logf        func(format string, args ...any)
}

// JudgeOption configures a JudgeMetric
type JudgeOption func(*JudgeMetric)

// WithDiagnostic logs judge fields whenever the named criterion falls
// below the threshold.
func WithDiagnostic(criterion string, threshold float64) JudgeOption {
	return func(m *JudgeMetric) {
		m.diagnostics = append(m.diagnostics, Diagnostic{Criterion: criterion, Threshold: threshold})
	}
}

// WithLogger overrides the diagnostic log destination
func WithLogger(logf func(format string, args ...any)) JudgeOption {
	return func(m *JudgeMetric) {
		m.logf = logf
	}
}

// NewJudgeMetric creates a rubric-driven judge metric
func NewJudgeMetric(judge ports.LLMService, rubric Rubric, extract FieldExtractor, opts ...JudgeOption) *JudgeMetric {
	m := &JudgeMetric{
		judge:   judge,
		rubric:  rubric,
		extract: extract,
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rubric returns the rubric this metric scores against
func (m *JudgeMetric) Rubric() Rubric {
	return m.rubric
}

// Score sends the prediction to the judge and aggregates the verdict.
// Judge transport failures and malformed verdicts surface as errors,
// never as silent zero scores.
func (m *JudgeMetric) Score(ctx context.Context, gold, pred Example, trace *Trace) (ScoreWithFeedback, error) {
	fields, err := m.extract(gold, pred)
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("%w: %v", domain.ErrEvaluationFailed, err)
	}

	prompt := m.rubric.BuildJudgePrompt(fields)
	resp, err := m.judge.Chat(ctx, []ports.LLMMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return ScoreWithFeedback{}, fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)
	}

	assessment, err := m.rubric.ParseAssessment(resp.Content)
	if err != nil {
		return ScoreWithFeedback{}, err
	}

	m.runDiagnostics(assessment, fields)

	return ScoreWithFeedback{
		Score:    assessment.Aggregate(),
		Feedback: m.feedback(assessment),
	}, nil
}

// Assess runs the judge and returns the full per-criterion assessment
func (m *JudgeMetric) Assess(ctx context.Context, gold, pred Example) (*Assessment, error) {
	fields, err := m.extract(gold, pred)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEvaluationFailed, err)
	}

	prompt := m.rubric.BuildJudgePrompt(fields)
	resp, err := m.judge.Chat(ctx, []ports.LLMMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrJudgeUnavailable, err)
	}

	assessment, err := m.rubric.ParseAssessment(resp.Content)
	if err != nil {
		return nil, err
	}

	m.runDiagnostics(assessment, fields)
	return assessment, nil
}

func (m *JudgeMetric) runDiagnostics(assessment *Assessment, fields []JudgeField) {
	for _, d := range m.diagnostics {
		if score := assessment.Value(d.Criterion); score < d.Threshold {
			m.logf("judge diagnostic: %s=%.2f below %.2f; rationale: %s; fields: %s",
				d.Criterion, score, d.Threshold, assessment.Rationale, summarizeFields(fields))
		}
	}
}

func (m *JudgeMetric) feedback(assessment *Assessment) string {
	var sb []byte
	for i, c := range m.rubric.Criteria {
		if i > 0 {
			sb = append(sb, ", "...)
		}
		sb = append(sb, fmt.Sprintf("%s=%.2f", c.Name, assessment.Value(c.Name))...)
	}
	if assessment.Rationale != "" {
		sb = append(sb, "; "...)
		sb = append(sb, assessment.Rationale...)
	}
	return string(sb)
}

func summarizeFields(fields []JudgeField) string {
	var sb []byte
	for i, f := range fields {
		if i > 0 {
			sb = append(sb, "; "...)
		}
		sb = append(sb, fmt.Sprintf("%s=%s", f.Name, truncate(f.Value, 80))...)
	}
	return string(sb)
}
