package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const DefaultQueryTimeout = 30 * time.Second

// withTimeout wraps a context with a default query timeout if the
// caller did not set a deadline.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}

func checkNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullFloat(f float64) sql.NullFloat64 {
	if f == 0 {
		return sql.NullFloat64{Valid: false}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func getTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// marshalMap marshals a map for a jsonb column, writing nil for empty
// maps so the column stays NULL.
func marshalMap[V any](m map[string]V) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// unmarshalMap fills target from a jsonb column, leaving an empty map
// for NULL or unparseable data.
func unmarshalMap[V any](data []byte, target *map[string]V) {
	*target = make(map[string]V)
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, target); err != nil {
		*target = make(map[string]V)
	}
}
