package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// TrainingExampleRepository implements ports.TrainingExampleRepository
type TrainingExampleRepository struct {
	BaseRepository
}

func NewTrainingExampleRepository(db Querier) *TrainingExampleRepository {
	return &TrainingExampleRepository{BaseRepository: NewBaseRepository(db)}
}

const exampleColumns = `id, app, inputs, outputs, source, created_at, deleted_at`

const insertExampleQuery = `
		INSERT INTO training_examples (` + exampleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *TrainingExampleRepository) Create(ctx context.Context, example *models.TrainingExample) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	inputs, outputs, err := marshalExampleFields(example)
	if err != nil {
		return err
	}

	_, err = r.conn(ctx).Exec(ctx, insertExampleQuery,
		example.ID,
		example.App,
		inputs,
		outputs,
		example.Source,
		example.CreatedAt,
		nullTime(example.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create training example: %w", err)
	}
	return nil
}

// CreateBatch inserts examples one statement at a time; callers wrap it
// in a transaction when atomicity matters.
func (r *TrainingExampleRepository) CreateBatch(ctx context.Context, examples []*models.TrainingExample) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	for _, example := range examples {
		inputs, outputs, err := marshalExampleFields(example)
		if err != nil {
			return err
		}
		_, err = r.conn(ctx).Exec(ctx, insertExampleQuery,
			example.ID,
			example.App,
			inputs,
			outputs,
			example.Source,
			example.CreatedAt,
			nullTime(example.DeletedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to create training example %s: %w", example.ID, err)
		}
	}
	return nil
}

func (r *TrainingExampleRepository) GetByID(ctx context.Context, id string) (*models.TrainingExample, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + exampleColumns + ` FROM training_examples WHERE id = $1 AND deleted_at IS NULL`
	example, err := scanExample(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: training example %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get training example: %w", err)
	}
	return example, nil
}

func (r *TrainingExampleRepository) GetByApp(ctx context.Context, app string, limit, offset int) ([]*models.TrainingExample, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + exampleColumns + `
		FROM training_examples
		WHERE app = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.conn(ctx).Query(ctx, query, app, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list training examples: %w", err)
	}
	defer rows.Close()

	examples := make([]*models.TrainingExample, 0)
	for rows.Next() {
		example, err := scanExample(rows)
		if err != nil {
			return nil, err
		}
		examples = append(examples, example)
	}
	return examples, rows.Err()
}

func (r *TrainingExampleRepository) CountByApp(ctx context.Context, app string) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var count int
	query := `SELECT COUNT(*) FROM training_examples WHERE app = $1 AND deleted_at IS NULL`
	if err := r.conn(ctx).QueryRow(ctx, query, app).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count training examples: %w", err)
	}
	return count, nil
}

// Delete soft-deletes an example
func (r *TrainingExampleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE training_examples SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete training example: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: training example %s", domain.ErrNotFound, id)
	}
	return nil
}

func marshalExampleFields(example *models.TrainingExample) (inputs, outputs []byte, err error) {
	inputs, err = marshalMap(example.Inputs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal example inputs: %w", err)
	}
	outputs, err = marshalMap(example.Outputs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal example outputs: %w", err)
	}
	return inputs, outputs, nil
}

func scanExample(row pgx.Row) (*models.TrainingExample, error) {
	var example models.TrainingExample
	var inputs, outputs []byte
	var deletedAt sql.NullTime

	err := row.Scan(
		&example.ID,
		&example.App,
		&inputs,
		&outputs,
		&example.Source,
		&example.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	unmarshalMap(inputs, &example.Inputs)
	unmarshalMap(outputs, &example.Outputs)
	example.DeletedAt = getTimePtr(deletedAt)

	return &example, nil
}
