package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

func TestTransactionManager_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	tm := NewTransactionManager(mock)
	repo := NewTrainingExampleRepository(mock)
	example := models.NewTrainingExample("ex_tx", models.AppMemoTemplate, models.SourceManual,
		map[string]any{"requirements": "x"}, nil)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO training_examples").
		WithArgs(
			example.ID, example.App, pgxmock.AnyArg(), pgxmock.AnyArg(),
			example.Source, example.CreatedAt, pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		return repo.Create(ctx, example)
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransactionManager_RollbackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	tm := NewTransactionManager(mock)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped boom, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestTransactionManager_NestedReusesTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	tm := NewTransactionManager(mock)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err = tm.WithTransaction(context.Background(), func(ctx context.Context) error {
		// inner call must not begin a second transaction
		return tm.WithTransaction(ctx, func(ctx context.Context) error {
			return nil
		})
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
