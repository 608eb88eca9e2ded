package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MaxTxAttempts bounds how often WithTx re-runs a transaction that lost a
// serialization race or was picked as a deadlock victim.
const MaxTxAttempts = 3

// ErrConcurrencyConflict is returned once the retry budget is spent. Callers
// may surface it as a transient failure.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// TxBeginner is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// WithTx runs fn inside a transaction, committing on nil and rolling back on
// error. Retryable Postgres failures re-run fn from the start, so fn must not
// keep state across attempts.
func WithTx(ctx context.Context, db TxBeginner, fn func(pgx.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := pgx.BeginTxFunc(ctx, db, pgx.TxOptions{}, fn)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt >= MaxTxAttempts {
			return fmt.Errorf("%w after %d attempts: %v", ErrConcurrencyConflict, attempt, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("retrying transaction", "attempt", attempt, "error", err)
	}
}

// IsRetryable reports serialization failures (40001) and deadlocks (40P01).
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
