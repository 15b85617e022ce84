package models

import (
	"time"
)

// OptimizationRun represents a GEPA optimization run over one of the
// prompt applications.
type OptimizationRun struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Status        string         `json:"status"` // "running", "completed", "failed"
	App           string         `json:"app"`
	BaselineScore float64        `json:"baseline_score,omitempty"`
	BestScore     float64        `json:"best_score,omitempty"`
	Iterations    int            `json:"iterations"`
	MaxIterations int            `json:"max_iterations"`
	Config        map[string]any `json:"config,omitempty"`
	Meta          map[string]any `json:"meta,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// OptimizationRun status values
const (
	OptimizationStatusRunning   = "running"
	OptimizationStatusCompleted = "completed"
	OptimizationStatusFailed    = "failed"
)

// Prompt application identifiers
const (
	AppMemoTemplate = "memo_template"
	AppWebAnswer    = "web_answer"
)

func NewOptimizationRun(id, name, app string, maxIterations int) *OptimizationRun {
	now := time.Now().UTC()
	return &OptimizationRun{
		ID:            id,
		Name:          name,
		Status:        OptimizationStatusRunning,
		App:           app,
		MaxIterations: maxIterations,
		Iterations:    0,
		Config:        make(map[string]any),
		Meta:          make(map[string]any),
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r *OptimizationRun) MarkCompleted() {
	now := time.Now().UTC()
	r.Status = OptimizationStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
}

func (r *OptimizationRun) MarkFailed() {
	now := time.Now().UTC()
	r.Status = OptimizationStatusFailed
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// PromptCandidate represents a candidate instruction produced during a run
type PromptCandidate struct {
	ID              string             `json:"id"`
	RunID           string             `json:"run_id"`
	Iteration       int                `json:"iteration"`
	PromptText      string             `json:"prompt_text"`
	Score           float64            `json:"score"`
	CriterionScores map[string]float64 `json:"criterion_scores,omitempty"`
	EvaluationCount int                `json:"evaluation_count"`
	Meta            map[string]any     `json:"meta,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func NewPromptCandidate(id, runID string, iteration int, promptText string) *PromptCandidate {
	now := time.Now().UTC()
	return &PromptCandidate{
		ID:              id,
		RunID:           runID,
		Iteration:       iteration,
		PromptText:      promptText,
		CriterionScores: make(map[string]float64),
		Meta:            make(map[string]any),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RecordEvaluation folds one more validation score into the running average.
func (c *PromptCandidate) RecordEvaluation(score float64) {
	c.EvaluationCount++
	c.Score = ((c.Score * float64(c.EvaluationCount-1)) + score) / float64(c.EvaluationCount)
	c.UpdatedAt = time.Now().UTC()
}

// SetCriterionScores sets all per-criterion averages at once
func (c *PromptCandidate) SetCriterionScores(scores map[string]float64) {
	c.CriterionScores = scores
	c.UpdatedAt = time.Now().UTC()
}
