package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Transactions are carried in the context so a service can compose several
// repository calls into one atomic unit without the repositories knowing
// about each other.  Repositories route their statements through dbtx(),
// which prefers the transaction when one is present.

type txKey struct{}

// WithTx runs fn inside a database transaction.  If the context already
// carries a transaction, fn joins it and the outer caller stays in charge
// of commit/rollback.  Lock-wait timeouts are mapped to ErrBusy so callers
// can report a retryable condition instead of a generic failure.
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		if isLockTimeout(err) {
			return ErrBusy
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if isLockTimeout(err) {
			return ErrBusy
		}
		return err
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// dbtx returns the statement executor for the current context: the active
// transaction when present, the pool otherwise.
func dbtx(ctx context.Context, db *sql.DB) interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
} {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// isDuplicateKey reports whether err is a MySQL duplicate-entry violation
// (error 1062), the signal behind every uniqueness conflict we surface.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// isLockTimeout reports whether err is a MySQL lock-wait timeout (1205).
func isLockTimeout(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1205
}
