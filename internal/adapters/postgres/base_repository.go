// Package postgres implements the repository ports on PostgreSQL via
// pgx. Repositories honor an ambient transaction placed in the context
// by TransactionManager.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx shared by pools and transactions
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BaseRepository struct {
	db Querier
}

func NewBaseRepository(db Querier) BaseRepository {
	return BaseRepository{db: db}
}

// conn returns the ambient transaction if one is in flight, otherwise
// the underlying pool.
func (r *BaseRepository) conn(ctx context.Context) Querier {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return r.db
}
