package dto

import (
	"time"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// StartOptimizationRequest starts an optimization run for an app
type StartOptimizationRequest struct {
	App  string `json:"app" msgpack:"app"`
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
}

// OptimizationRunResponse is the API shape of an optimization run
type OptimizationRunResponse struct {
	ID            string     `json:"id" msgpack:"id"`
	Name          string     `json:"name" msgpack:"name"`
	App           string     `json:"app" msgpack:"app"`
	Status        string     `json:"status" msgpack:"status"`
	BaselineScore float64    `json:"baseline_score" msgpack:"baseline_score"`
	BestScore     float64    `json:"best_score" msgpack:"best_score"`
	Iterations    int        `json:"iterations" msgpack:"iterations"`
	MaxIterations int        `json:"max_iterations" msgpack:"max_iterations"`
	StartedAt     time.Time  `json:"started_at" msgpack:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" msgpack:"completed_at,omitempty"`
}

func FromOptimizationRun(run *models.OptimizationRun) *OptimizationRunResponse {
	return &OptimizationRunResponse{
		ID:            run.ID,
		Name:          run.Name,
		App:           run.App,
		Status:        run.Status,
		BaselineScore: run.BaselineScore,
		BestScore:     run.BestScore,
		Iterations:    run.Iterations,
		MaxIterations: run.MaxIterations,
		StartedAt:     run.StartedAt,
		CompletedAt:   run.CompletedAt,
	}
}

// PromptCandidateResponse is the API shape of a stored candidate
type PromptCandidateResponse struct {
	ID              string             `json:"id" msgpack:"id"`
	RunID           string             `json:"run_id" msgpack:"run_id"`
	Iteration       int                `json:"iteration" msgpack:"iteration"`
	PromptText      string             `json:"prompt_text" msgpack:"prompt_text"`
	Score           float64            `json:"score" msgpack:"score"`
	CriterionScores map[string]float64 `json:"criterion_scores,omitempty" msgpack:"criterion_scores,omitempty"`
	EvaluationCount int                `json:"evaluation_count" msgpack:"evaluation_count"`
}

func FromPromptCandidate(candidate *models.PromptCandidate) *PromptCandidateResponse {
	return &PromptCandidateResponse{
		ID:              candidate.ID,
		RunID:           candidate.RunID,
		Iteration:       candidate.Iteration,
		PromptText:      candidate.PromptText,
		Score:           candidate.Score,
		CriterionScores: candidate.CriterionScores,
		EvaluationCount: candidate.EvaluationCount,
	}
}
