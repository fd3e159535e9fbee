package pgutils

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// TxRunner runs fn inside a unit of work that is committed when fn returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(*sql.Tx) error) error
}

// DBRunner adapts *sql.DB to TxRunner.
type DBRunner struct {
	DB *sql.DB
}

func (r DBRunner) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return WithTx(ctx, r.DB, fn)
}

// WithTx runs fn inside a transaction.
// It commits if fn returns nil, otherwise it rolls back.
// The error returned by fn is passed through unwrapped so callers can match sentinels.
func WithTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	err = fn(tx)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("rollback after fn error: %v (fn err: %w)", rbErr, err)
		}

		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// IsUniqueViolation reports whether err carries SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
