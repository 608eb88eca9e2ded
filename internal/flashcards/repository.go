package flashcards

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

type Repository interface {
	Create(ctx context.Context, card *Flashcard) error
	// GetByID returns the card regardless of owner, or nil if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Flashcard, error)
	List(ctx context.Context, userID uuid.UUID, params ListParams) ([]Flashcard, int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
	// Review locks the owner's card, applies fn and stores the scheduling
	// fields in one transaction.
	Review(ctx context.Context, id, userID uuid.UUID, fn func(*Flashcard) error) (*Flashcard, error)
	Due(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]Flashcard, error)
}

const cardColumns = `id, user_id, note_id, question, answer, difficulty_score, review_count, correct_count, last_reviewed, next_review, created_at`

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func scanCard(row pgx.Row) (*Flashcard, error) {
	c := &Flashcard{}
	err := row.Scan(&c.ID, &c.UserID, &c.NoteID, &c.Question, &c.Answer, &c.DifficultyScore,
		&c.ReviewCount, &c.CorrectCount, &c.LastReviewed, &c.NextReview, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectCards(rows pgx.Rows) ([]Flashcard, error) {
	defer rows.Close()
	var cards []Flashcard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flashcard: %w", err)
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

func (r *postgresRepository) Create(ctx context.Context, c *Flashcard) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO flashcards (`+cardColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID, c.UserID, c.NoteID, c.Question, c.Answer, c.DifficultyScore,
		c.ReviewCount, c.CorrectCount, c.LastReviewed, c.NextReview, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting flashcard: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Flashcard, error) {
	c, err := scanCard(r.pool.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM flashcards WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying flashcard by id: %w", err)
	}
	return c, nil
}

func (r *postgresRepository) List(ctx context.Context, userID uuid.UUID, params ListParams) ([]Flashcard, int64, error) {
	where := `user_id = $1`
	args := []any{userID}
	if params.NoteID != nil {
		where += ` AND note_id = $2`
		args = append(args, *params.NoteID)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM flashcards WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting flashcards: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT %s FROM flashcards WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		cardColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, params.PageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing flashcards: %w", err)
	}
	cards, err := collectCards(rows)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM flashcards WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting flashcard: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresRepository) Review(ctx context.Context, id, userID uuid.UUID, fn func(*Flashcard) error) (*Flashcard, error) {
	var out *Flashcard
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		c, err := scanCard(tx.QueryRow(ctx,
			`SELECT `+cardColumns+` FROM flashcards WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("locking flashcard: %w", err)
		}

		if err := fn(c); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE flashcards
			SET difficulty_score = $2, review_count = $3, correct_count = $4,
			    last_reviewed = $5, next_review = $6
			WHERE id = $1`,
			c.ID, c.DifficultyScore, c.ReviewCount, c.CorrectCount, c.LastReviewed, c.NextReview)
		if err != nil {
			return fmt.Errorf("updating flashcard: %w", err)
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) Due(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]Flashcard, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+cardColumns+`
		FROM flashcards
		WHERE user_id = $1 AND (next_review IS NULL OR next_review <= $2)
		ORDER BY difficulty_score DESC, next_review ASC NULLS FIRST, created_at ASC, id ASC
		LIMIT $3`, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("querying due flashcards: %w", err)
	}
	return collectCards(rows)
}
