// Package storetest provides scriptable fakes for store.DBTX and
// store.Beginner, including a fake transaction for the paths that need
// Begin/Commit/Rollback.
package storetest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// FakeDB implements store.DBTX and store.Beginner with scriptable funcs.
type FakeDB struct {
	QueryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	ExecFunc     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginFunc    func(ctx context.Context) (pgx.Tx, error)
	PingFunc     func(ctx context.Context) error
}

func (f *FakeDB) Ping(ctx context.Context) error {
	if f.PingFunc != nil {
		return f.PingFunc(ctx)
	}
	return nil
}

func (f *FakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag(""), nil
}

func (f *FakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return nil, nil
}

func (f *FakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return &FakeRow{}
}

func (f *FakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	return &FakeTx{FakeDB: f}, nil
}

// FakeRow implements pgx.Row.
type FakeRow struct {
	ScanFunc func(dest ...any) error
}

func (r *FakeRow) Scan(dest ...any) error {
	if r.ScanFunc != nil {
		return r.ScanFunc(dest...)
	}
	return nil
}

// FakeTx implements pgx.Tx by embedding the interface (so unused methods
// like CopyFrom/SendBatch/LargeObjects are promoted and simply panic if
// ever called) and delegating Exec/Query/QueryRow to the wrapped FakeDB.
type FakeTx struct {
	pgx.Tx
	FakeDB     *FakeDB
	CommitFunc func(ctx context.Context) error
}

func (t *FakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.FakeDB.Exec(ctx, sql, args...)
}

func (t *FakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.FakeDB.Query(ctx, sql, args...)
}

func (t *FakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.FakeDB.QueryRow(ctx, sql, args...)
}

func (t *FakeTx) Commit(ctx context.Context) error {
	if t.CommitFunc != nil {
		return t.CommitFunc(ctx)
	}
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error { return nil }

// EmptyRows is a pgx.Rows with no rows, for Query paths tests don't care
// about the result set of.
type EmptyRows struct {
	pgx.Rows
}

func (e *EmptyRows) Next() bool { return false }
func (e *EmptyRows) Close()     {}
func (e *EmptyRows) Err() error { return nil }
