package resources

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Closable is anything the base server tears down on shutdown.
type Closable interface {
	Close()
}

// CloseFunc adapts a plain function to Closable, for clients whose Close
// returns an error.
type CloseFunc func()

func (f CloseFunc) Close() { f() }

// DBInstance is the pool surface the repository needs. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type DBInstance interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}
