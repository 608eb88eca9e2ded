package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  *int
	rolledBack *int
}

func (t fakeTx) Commit(context.Context) error {
	*t.committed++
	return nil
}

func (t fakeTx) Rollback(context.Context) error {
	*t.rolledBack++
	return nil
}

type fakeBeginner struct {
	begun      int
	committed  int
	rolledBack int
	beginErr   error
}

func (b *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	b.begun++
	return fakeTx{committed: &b.committed, rolledBack: &b.rolledBack}, nil
}

func TestWithTx_Commits(t *testing.T) {
	db := &fakeBeginner{}
	err := WithTx(context.Background(), db, func(pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 1, db.committed)
	assert.Equal(t, 0, db.rolledBack)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := &fakeBeginner{}
	boom := errors.New("boom")
	err := WithTx(context.Background(), db, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, db.begun)
	assert.Equal(t, 0, db.committed)
	assert.Equal(t, 1, db.rolledBack)
}

func TestWithTx_RetriesSerializationFailure(t *testing.T) {
	db := &fakeBeginner{}
	calls := 0
	err := WithTx(context.Background(), db, func(pgx.Tx) error {
		calls++
		if calls < 2 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, db.committed)
}

func TestWithTx_GivesUpAfterMaxAttempts(t *testing.T) {
	db := &fakeBeginner{}
	calls := 0
	err := WithTx(context.Background(), db, func(pgx.Tx) error {
		calls++
		return fmt.Errorf("locking row: %w", &pgconn.PgError{Code: "40P01"})
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, MaxTxAttempts, calls)
}

func TestWithTx_BeginError(t *testing.T) {
	db := &fakeBeginner{beginErr: errors.New("pool closed")}
	err := WithTx(context.Background(), db, func(pgx.Tx) error { return nil })
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrConcurrencyConflict)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
