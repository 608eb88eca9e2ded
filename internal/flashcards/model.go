package flashcards

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound covers both unknown cards and cards owned by someone else.
var ErrNotFound = errors.New("flashcard not found")

type Flashcard struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	NoteID          *uuid.UUID `json:"note_id,omitempty"`
	Question        string     `json:"question"`
	Answer          string     `json:"answer"`
	DifficultyScore float64    `json:"difficulty_score"`
	ReviewCount     int        `json:"review_count"`
	CorrectCount    int        `json:"correct_count"`
	LastReviewed    *time.Time `json:"last_reviewed,omitempty"`
	NextReview      *time.Time `json:"next_review,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CorrectRatio is correct_count / review_count, or 0 for an unreviewed card.
func (c *Flashcard) CorrectRatio() float64 {
	if c.ReviewCount == 0 {
		return 0
	}
	return float64(c.CorrectCount) / float64(c.ReviewCount)
}

// IsDue reports whether the card may be studied at now.
func (c *Flashcard) IsDue(now time.Time) bool {
	return c.NextReview == nil || !c.NextReview.After(now)
}

type CreateFlashcardRequest struct {
	Question string  `json:"question" validate:"required,max=4000"`
	Answer   string  `json:"answer" validate:"required,max=4000"`
	NoteID   *string `json:"note_id,omitempty" validate:"omitempty,uuid"`
}

type ReviewRequest struct {
	WasCorrect *bool `json:"was_correct" validate:"required"`
}

type ReviewResult struct {
	Flashcard
	CorrectRatio float64 `json:"correct_ratio"`
}

type DueCard struct {
	Flashcard
	IsNew bool `json:"is_new"`
}

type ListParams struct {
	NoteID   *uuid.UUID
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
