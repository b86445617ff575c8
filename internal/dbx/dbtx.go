// Package dbx defines the minimal database-handle surface shared by
// catalog and basket repositories, so tests can drive them against
// pgxmock instead of a live Postgres instance.
package dbx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and pgxmock.PgxPoolIface.
// Repositories accept this instead of a concrete pool type so they can
// run unmodified against a mock in tests and a real pool in production.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
