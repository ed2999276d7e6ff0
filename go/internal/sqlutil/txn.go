package sqlutil

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories are written against it so the same method can run standalone
// or join a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Run executes fn inside a *sql.Tx.
// If fn returns an error the tx rolls back, else it commits.
func Run(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Runner abstracts transaction execution so app layers can be tested without
// a live database.
type Runner interface {
	RunTx(ctx context.Context, fn func(q Querier) error) error
}

// DB adapts *sql.DB to the Runner interface.
type DB struct {
	*sql.DB
}

func NewDB(db *sql.DB) DB {
	return DB{DB: db}
}

func (d DB) RunTx(ctx context.Context, fn func(q Querier) error) error {
	return Run(ctx, d.DB, func(tx *sql.Tx) error {
		return fn(tx)
	})
}
