package flashcards

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/metrics"
	inats "github.com/impify/impify/internal/nats"
)

// ReviewHook runs after a review commits. It is used to credit the
// flashcard_review activity to the user's economy.
type ReviewHook func(ctx context.Context, userID uuid.UUID, now time.Time) error

type Service struct {
	repo      Repository
	publisher inats.EventPublisher
	onReview  ReviewHook
}

func NewService(repo Repository, publisher inats.EventPublisher, onReview ReviewHook) *Service {
	return &Service{repo: repo, publisher: publisher, onReview: onReview}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateFlashcardRequest, now time.Time) (*Flashcard, error) {
	card := &Flashcard{
		ID:        uuid.New(),
		UserID:    userID,
		Question:  req.Question,
		Answer:    req.Answer,
		CreatedAt: now,
	}
	if req.NoteID != nil {
		noteID, err := uuid.Parse(*req.NoteID)
		if err != nil {
			return nil, fmt.Errorf("parsing note id: %w", err)
		}
		card.NoteID = &noteID
	}

	if err := s.repo.Create(ctx, card); err != nil {
		return nil, fmt.Errorf("creating flashcard: %w", err)
	}
	return card, nil
}

// Get returns the card if userID owns it.
func (s *Service) Get(ctx context.Context, userID, cardID uuid.UUID) (*Flashcard, error) {
	card, err := s.repo.GetByID(ctx, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading flashcard: %w", err)
	}
	if card == nil || card.UserID != userID {
		return nil, ErrNotFound
	}
	return card, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, params ListParams) ([]Flashcard, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	cards, total, err := s.repo.List(ctx, userID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("listing flashcards: %w", err)
	}
	return cards, total, nil
}

func (s *Service) Delete(ctx context.Context, userID, cardID uuid.UUID) error {
	return s.repo.Delete(ctx, cardID, userID)
}

// Grade records a review of the card and reschedules it. Unknown cards and
// cards owned by another user yield ErrNotFound.
func (s *Service) Grade(ctx context.Context, userID, cardID uuid.UUID, wasCorrect bool, now time.Time) (*ReviewResult, error) {
	card, err := s.repo.Review(ctx, cardID, userID, func(c *Flashcard) error {
		*c = Grade(*c, wasCorrect, now)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("grading flashcard %s: %w", cardID, err)
	}

	outcome := "incorrect"
	if wasCorrect {
		outcome = "correct"
	}
	metrics.FlashcardsGradedTotal.WithLabelValues(outcome).Inc()

	inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventFlashcardReviewed, map[string]any{
		"flashcard_id":     card.ID,
		"was_correct":      wasCorrect,
		"difficulty_score": card.DifficultyScore,
		"next_review":      card.NextReview,
	}))

	if s.onReview != nil {
		if err := s.onReview(ctx, userID, now); err != nil {
			slog.Warn("recording review activity", "user_id", userID, "error", err)
		}
	}

	return &ReviewResult{Flashcard: *card, CorrectRatio: card.CorrectRatio()}, nil
}

// SelectDue returns up to limit cards due at now in study order.
func (s *Service) SelectDue(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]DueCard, error) {
	if limit < 1 {
		limit = DefaultDueLimit
	}
	cards, err := s.repo.Due(ctx, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting due flashcards: %w", err)
	}

	due := make([]DueCard, len(cards))
	for i, c := range cards {
		due[i] = DueCard{Flashcard: c, IsNew: c.ReviewCount == 0}
	}
	return due, nil
}
