package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// OptimizationRepository implements ports.OptimizationRunRepository
type OptimizationRepository struct {
	BaseRepository
}

func NewOptimizationRepository(db Querier) *OptimizationRepository {
	return &OptimizationRepository{BaseRepository: NewBaseRepository(db)}
}

const runColumns = `id, name, description, status, app, baseline_score, best_score,
		iterations, max_iterations, config, meta, started_at, completed_at, created_at, updated_at`

func (r *OptimizationRepository) Create(ctx context.Context, run *models.OptimizationRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := marshalMap(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	meta, err := marshalMap(run.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}

	query := `
		INSERT INTO optimization_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.conn(ctx).Exec(ctx, query,
		run.ID,
		run.Name,
		run.Description,
		run.Status,
		run.App,
		nullFloat(run.BaselineScore),
		nullFloat(run.BestScore),
		run.Iterations,
		run.MaxIterations,
		config,
		meta,
		run.StartedAt,
		nullTime(run.CompletedAt),
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create optimization run: %w", err)
	}
	return nil
}

func (r *OptimizationRepository) GetByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + runColumns + ` FROM optimization_runs WHERE id = $1`
	run, err := scanRun(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get optimization run: %w", err)
	}
	return run, nil
}

func (r *OptimizationRepository) Update(ctx context.Context, run *models.OptimizationRun) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	config, err := marshalMap(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal run config: %w", err)
	}
	meta, err := marshalMap(run.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal run meta: %w", err)
	}

	query := `
		UPDATE optimization_runs
		SET status = $1, baseline_score = $2, best_score = $3, iterations = $4,
			config = $5, meta = $6, completed_at = $7, updated_at = $8
		WHERE id = $9`

	result, err := r.conn(ctx).Exec(ctx, query,
		run.Status,
		nullFloat(run.BaselineScore),
		nullFloat(run.BestScore),
		run.Iterations,
		config,
		meta,
		nullTime(run.CompletedAt),
		run.UpdatedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update optimization run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, run.ID)
	}
	return nil
}

func (r *OptimizationRepository) List(ctx context.Context, app string, limit, offset int) ([]*models.OptimizationRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + runColumns + ` FROM optimization_runs`
	args := []any{}
	argPos := 1

	if app != "" {
		query += fmt.Sprintf(" WHERE app = $%d", argPos)
		args = append(args, app)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list optimization runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func (r *OptimizationRepository) GetLatestCompleted(ctx context.Context, app string) (*models.OptimizationRun, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + runColumns + `
		FROM optimization_runs
		WHERE app = $1 AND status = $2
		ORDER BY completed_at DESC
		LIMIT 1`

	run, err := scanRun(r.conn(ctx).QueryRow(ctx, query, app, models.OptimizationStatusCompleted))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: no completed run for app %s", domain.ErrRunNotFound, app)
		}
		return nil, fmt.Errorf("failed to get latest completed run: %w", err)
	}
	return run, nil
}

const candidateColumns = `id, run_id, iteration, prompt_text, score, criterion_scores,
		evaluation_count, meta, created_at, updated_at`

func (r *OptimizationRepository) CreateCandidate(ctx context.Context, candidate *models.PromptCandidate) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	criterionScores, err := marshalMap(candidate.CriterionScores)
	if err != nil {
		return fmt.Errorf("failed to marshal criterion scores: %w", err)
	}
	meta, err := marshalMap(candidate.Meta)
	if err != nil {
		return fmt.Errorf("failed to marshal candidate meta: %w", err)
	}

	query := `
		INSERT INTO prompt_candidates (` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			criterion_scores = EXCLUDED.criterion_scores,
			evaluation_count = EXCLUDED.evaluation_count,
			updated_at = EXCLUDED.updated_at`

	_, err = r.conn(ctx).Exec(ctx, query,
		candidate.ID,
		candidate.RunID,
		candidate.Iteration,
		candidate.PromptText,
		nullFloat(candidate.Score),
		criterionScores,
		candidate.EvaluationCount,
		meta,
		candidate.CreatedAt,
		candidate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save candidate: %w", err)
	}
	return nil
}

func (r *OptimizationRepository) GetCandidatesByRun(ctx context.Context, runID string) ([]*models.PromptCandidate, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + candidateColumns + `
		FROM prompt_candidates
		WHERE run_id = $1
		ORDER BY iteration DESC, score DESC NULLS LAST`

	rows, err := r.conn(ctx).Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func (r *OptimizationRepository) GetBestCandidate(ctx context.Context, runID string) (*models.PromptCandidate, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + candidateColumns + `
		FROM prompt_candidates
		WHERE run_id = $1
		ORDER BY score DESC NULLS LAST
		LIMIT 1`

	candidate, err := scanCandidate(r.conn(ctx).QueryRow(ctx, query, runID))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: no candidates for run %s", domain.ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get best candidate: %w", err)
	}
	return candidate, nil
}

func scanRun(row pgx.Row) (*models.OptimizationRun, error) {
	var run models.OptimizationRun
	var baselineScore, bestScore sql.NullFloat64
	var completedAt sql.NullTime
	var config, meta []byte

	err := row.Scan(
		&run.ID,
		&run.Name,
		&run.Description,
		&run.Status,
		&run.App,
		&baselineScore,
		&bestScore,
		&run.Iterations,
		&run.MaxIterations,
		&config,
		&meta,
		&run.StartedAt,
		&completedAt,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if baselineScore.Valid {
		run.BaselineScore = baselineScore.Float64
	}
	if bestScore.Valid {
		run.BestScore = bestScore.Float64
	}
	run.CompletedAt = getTimePtr(completedAt)
	unmarshalMap(config, &run.Config)
	unmarshalMap(meta, &run.Meta)

	return &run, nil
}

func scanRuns(rows pgx.Rows) ([]*models.OptimizationRun, error) {
	runs := make([]*models.OptimizationRun, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanCandidate(row pgx.Row) (*models.PromptCandidate, error) {
	var candidate models.PromptCandidate
	var score sql.NullFloat64
	var criterionScores, meta []byte

	err := row.Scan(
		&candidate.ID,
		&candidate.RunID,
		&candidate.Iteration,
		&candidate.PromptText,
		&score,
		&criterionScores,
		&candidate.EvaluationCount,
		&meta,
		&candidate.CreatedAt,
		&candidate.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if score.Valid {
		candidate.Score = score.Float64
	}
	unmarshalMap(criterionScores, &candidate.CriterionScores)
	unmarshalMap(meta, &candidate.Meta)

	return &candidate, nil
}

func scanCandidates(rows pgx.Rows) ([]*models.PromptCandidate, error) {
	candidates := make([]*models.PromptCandidate, 0)
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate)
	}
	return candidates, rows.Err()
}
