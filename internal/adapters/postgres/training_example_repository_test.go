package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

var exampleRowColumns = []string{
	"id", "app", "inputs", "outputs", "source", "created_at", "deleted_at",
}

func TestTrainingExampleRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := NewTrainingExampleRepository(mock)
	example := models.NewTrainingExample("ex_1", models.AppWebAnswer, models.SourceSearch,
		map[string]any{"question": "what is pgvector?"}, nil)

	mock.ExpectExec("INSERT INTO training_examples").
		WithArgs(
			example.ID, example.App, pgxmock.AnyArg(), pgxmock.AnyArg(),
			example.Source, example.CreatedAt, pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), example); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTrainingExampleRepository_CreateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := NewTrainingExampleRepository(mock)
	examples := []*models.TrainingExample{
		models.NewTrainingExample("ex_1", models.AppMemoTemplate, models.SourceSeed,
			map[string]any{"requirements": "standup notes"}, map[string]any{"template": "## Standup"}),
		models.NewTrainingExample("ex_2", models.AppMemoTemplate, models.SourceSeed,
			map[string]any{"requirements": "retro notes"}, map[string]any{"template": "## Retro"}),
	}

	for _, example := range examples {
		mock.ExpectExec("INSERT INTO training_examples").
			WithArgs(
				example.ID, example.App, pgxmock.AnyArg(), pgxmock.AnyArg(),
				example.Source, example.CreatedAt, pgxmock.AnyArg(),
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	if err := repo.CreateBatch(context.Background(), examples); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTrainingExampleRepository_GetByApp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := NewTrainingExampleRepository(mock)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM training_examples").
		WithArgs(models.AppWebAnswer, 100, 0).
		WillReturnRows(pgxmock.NewRows(exampleRowColumns).
			AddRow("ex_1", models.AppWebAnswer, []byte(`{"question":"a"}`), nil, models.SourceSearch, now, nil).
			AddRow("ex_2", models.AppWebAnswer, []byte(`{"question":"b"}`), nil, models.SourceSearch, now, nil))

	examples, err := repo.GetByApp(context.Background(), models.AppWebAnswer, 0, 0)
	if err != nil {
		t.Fatalf("GetByApp failed: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("expected 2 examples, got %d", len(examples))
	}
	if examples[0].Inputs["question"] != "a" {
		t.Errorf("expected question 'a', got %v", examples[0].Inputs["question"])
	}
	if examples[0].Outputs == nil {
		t.Error("expected outputs map to be initialized for NULL column")
	}
}

func TestTrainingExampleRepository_CountByApp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := NewTrainingExampleRepository(mock)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(models.AppMemoTemplate).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByApp(context.Background(), models.AppMemoTemplate)
	if err != nil {
		t.Fatalf("CountByApp failed: %v", err)
	}
	if count != 7 {
		t.Errorf("expected 7, got %d", count)
	}
}

func TestTrainingExampleRepository_Delete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	repo := NewTrainingExampleRepository(mock)

	mock.ExpectExec("UPDATE training_examples SET deleted_at").
		WithArgs("ex_missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Delete(context.Background(), "ex_missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
