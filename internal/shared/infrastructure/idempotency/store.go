// Package idempotency implements orchestrator.IdempotencyStore as an
// insert-or-conflict against a unique key column, scoped to the caller's
// transaction so a reservation only becomes visible to other callers once
// the guarded command commits.
package idempotency

import (
	"context"

	"github.com/skillswap/sessionengine/internal/shared/apperr"
	"github.com/skillswap/sessionengine/internal/shared/infrastructure/database"
)

// Store reserves idempotency keys against the idempotency_keys table.
type Store struct {
	conn database.Connection
}

// NewStore constructs a Store.
func NewStore(conn database.Connection) *Store {
	return &Store{conn: conn}
}

// Reserve attempts to insert key. A unique-constraint conflict means the
// key is already reserved (by this call or an earlier one) and the caller
// should treat its command as a no-op success. The conflict path uses
// DO NOTHING plus RowsAffected rather than an error check so it works
// identically against Postgres and SQLite without inspecting driver-specific
// error codes.
func (s *Store) Reserve(ctx context.Context, key string) (alreadyReserved bool, err error) {
	if key == "" {
		return false, nil
	}
	p := database.Placeholder(s.conn.Driver(), 1)
	query := "INSERT INTO idempotency_keys (key) VALUES (" + p + ") ON CONFLICT (key) DO NOTHING"

	exec := database.ExecutorFromContext(ctx, s.conn)
	res, err := exec.Exec(ctx, query, key)
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransient, "failed to reserve idempotency key", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Wrap(apperr.KindTransient, "failed to read idempotency reservation result", err)
	}
	return n == 0, nil
}
