package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the narrow slice of *pgxpool.Pool / pgx.Tx that store operations
// need, so every operation can run either standalone or inside a caller's
// transaction and tests can substitute storetest.FakeDB.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is implemented by *pgxpool.Pool; tasks.go uses it to start the
// transaction that wraps toggle-complete's recurrence materialization.
type Beginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DB is the full handle a process holds: queries, transactions, and the
// liveness ping the readiness probe uses. *pgxpool.Pool implements it;
// storetest.FakeDB fakes it.
type DB interface {
	Beginner
	Ping(ctx context.Context) error
}
