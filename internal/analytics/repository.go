package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// Insert stores e. Inserting an id that already exists is a no-op, so
	// redelivered messages are harmless.
	Insert(ctx context.Context, e *Event) error
	ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Event, int64, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Insert(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO analytics_events (id, user_id, event_type, data, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		e.ID, e.UserID, e.EventType, data, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting analytics event: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, params ListParams) ([]Event, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	conditions := []string{"user_id = $1"}
	args := []any{userID}
	argIdx := 2

	if params.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, params.EventType)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM analytics_events WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting analytics events: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(
		`SELECT id, user_id, event_type, data, created_at
		 FROM analytics_events WHERE %s
		 ORDER BY created_at DESC, id
		 LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying analytics events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &e.Data, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning analytics event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating analytics events: %w", err)
	}

	return events, total, nil
}
