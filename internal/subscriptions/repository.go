package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/impify/impify/internal/database"
)

// GrantFunc runs inside the activation transaction so the token credit
// commits or rolls back together with the subscription rows.
type GrantFunc func(ctx context.Context, q database.DBTX) error

type Repository interface {
	// Active lazily deactivates lapsed rows and returns the live subscription,
	// or nil when the user has none.
	Active(ctx context.Context, userID uuid.UUID, now time.Time) (*Subscription, error)
	// Activate replaces the user's active subscription with sub.
	Activate(ctx context.Context, sub *Subscription, grant GrantFunc) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Active(ctx context.Context, userID uuid.UUID, now time.Time) (*Subscription, error) {
	// Single statement so two readers cannot both observe the lapsed row as live.
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET active = false
		WHERE user_id = $1 AND active AND expires_at IS NOT NULL AND expires_at < $2`,
		userID, now)
	if err != nil {
		return nil, fmt.Errorf("expiring subscriptions: %w", err)
	}

	sub := &Subscription{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, user_id, tier, active, expires_at, created_at
		FROM subscriptions
		WHERE user_id = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1`, userID).Scan(
		&sub.ID, &sub.UserID, &sub.Tier, &sub.Active, &sub.ExpiresAt, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying active subscription: %w", err)
	}
	return sub, nil
}

func (r *postgresRepository) Activate(ctx context.Context, sub *Subscription, grant GrantFunc) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Held until commit so concurrent activations for one user queue here
		// instead of racing on the single-active-row index.
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, sub.UserID.String()); err != nil {
			return fmt.Errorf("locking user subscriptions: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE subscriptions SET active = false WHERE user_id = $1 AND active`, sub.UserID); err != nil {
			return fmt.Errorf("deactivating subscriptions: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO subscriptions (id, user_id, tier, active, expires_at, created_at)
			VALUES ($1, $2, $3, true, $4, $5)`,
			sub.ID, sub.UserID, sub.Tier, sub.ExpiresAt, sub.CreatedAt); err != nil {
			return fmt.Errorf("inserting subscription: %w", err)
		}

		if grant != nil {
			if err := grant(ctx, tx); err != nil {
				return err
			}
		}
		return nil
	})
}
