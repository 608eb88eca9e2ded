package economy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/impify/impify/internal/database"
)

type Repository interface {
	// Ensure returns the user's economy, inserting defaults if it is missing.
	Ensure(ctx context.Context, defaults UserEconomy) (*UserEconomy, error)
	// Update locks the row (creating it from defaults if needed), applies fn
	// and writes every field back in one transaction. fn may run more than
	// once when the transaction is retried.
	Update(ctx context.Context, defaults UserEconomy, fn func(*UserEconomy) error) (*UserEconomy, error)
	// Debit subtracts amount only if the balance covers it. It returns false
	// when the balance is short and ErrNotFound when there is no row.
	Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	// GrantPlanTokens credits tokens and sets the monthly allotment using q,
	// which may be an open transaction.
	GrantPlanTokens(ctx context.Context, q database.DBTX, defaults UserEconomy, tokens int) error
}

const economyColumns = `user_id, tokens, monthly_tokens, xp, level, streak, last_active_date, monthly_reset_date`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func insertDefaults(ctx context.Context, q database.DBTX, e UserEconomy) error {
	_, err := q.Exec(ctx, `
		INSERT INTO user_economy (`+economyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO NOTHING`,
		e.UserID, e.Tokens, e.MonthlyTokens, e.XP, e.Level, e.Streak, e.LastActiveDate, e.MonthlyResetDate)
	if err != nil {
		return fmt.Errorf("inserting default economy: %w", err)
	}
	return nil
}

func scanEconomy(row pgx.Row) (*UserEconomy, error) {
	e := &UserEconomy{}
	err := row.Scan(&e.UserID, &e.Tokens, &e.MonthlyTokens, &e.XP, &e.Level, &e.Streak,
		&e.LastActiveDate, &e.MonthlyResetDate)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *postgresRepository) Ensure(ctx context.Context, defaults UserEconomy) (*UserEconomy, error) {
	if err := insertDefaults(ctx, r.pool, defaults); err != nil {
		return nil, err
	}

	e, err := scanEconomy(r.pool.QueryRow(ctx,
		`SELECT `+economyColumns+` FROM user_economy WHERE user_id = $1`, defaults.UserID))
	if err != nil {
		return nil, fmt.Errorf("querying economy: %w", err)
	}
	return e, nil
}

func (r *postgresRepository) Update(ctx context.Context, defaults UserEconomy, fn func(*UserEconomy) error) (*UserEconomy, error) {
	var out *UserEconomy
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertDefaults(ctx, tx, defaults); err != nil {
			return err
		}

		e, err := scanEconomy(tx.QueryRow(ctx,
			`SELECT `+economyColumns+` FROM user_economy WHERE user_id = $1 FOR UPDATE`, defaults.UserID))
		if err != nil {
			return fmt.Errorf("locking economy: %w", err)
		}

		if err := fn(e); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE user_economy
			SET tokens = $2, monthly_tokens = $3, xp = $4, level = $5, streak = $6,
			    last_active_date = $7, monthly_reset_date = $8, updated_at = NOW()
			WHERE user_id = $1`,
			e.UserID, e.Tokens, e.MonthlyTokens, e.XP, e.Level, e.Streak, e.LastActiveDate, e.MonthlyResetDate)
		if err != nil {
			return fmt.Errorf("updating economy: %w", err)
		}

		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_economy SET tokens = tokens - $2, updated_at = NOW()
		WHERE user_id = $1 AND tokens >= $2`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("debiting tokens: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_economy WHERE user_id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking economy: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *postgresRepository) GrantPlanTokens(ctx context.Context, q database.DBTX, defaults UserEconomy, tokens int) error {
	if q == nil {
		q = r.pool
	}
	if err := insertDefaults(ctx, q, defaults); err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE user_economy
		SET tokens = tokens + $2, monthly_tokens = $2,
		    monthly_reset_date = COALESCE(monthly_reset_date, $3), updated_at = NOW()
		WHERE user_id = $1`, defaults.UserID, tokens, defaults.MonthlyResetDate)
	if err != nil {
		return fmt.Errorf("granting plan tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
