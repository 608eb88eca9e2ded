//go:build integration

package flashcards

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/impify/impify/internal/nats"
	"github.com/impify/impify/internal/testutil"
)

func TestPostgres_DueOrderMatchesSelectDue(t *testing.T) {
	repo := NewRepository(testutil.NewPostgres(t))
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)
	at := func(d time.Duration) *time.Time { v := now.Add(d); return &v }

	cards := []Flashcard{
		{DifficultyScore: 0.5, CreatedAt: now.Add(-5 * time.Hour)},
		{DifficultyScore: 0.5, NextReview: at(-time.Hour), ReviewCount: 2, CorrectCount: 1, CreatedAt: now.Add(-6 * time.Hour)},
		{DifficultyScore: 0.9, NextReview: at(-time.Minute), ReviewCount: 3, CreatedAt: now.Add(-4 * time.Hour)},
		{DifficultyScore: 0.9, NextReview: at(-2 * time.Hour), ReviewCount: 1, CreatedAt: now.Add(-3 * time.Hour)},
		{DifficultyScore: 0.2, NextReview: at(time.Hour), ReviewCount: 1, CorrectCount: 1, CreatedAt: now.Add(-2 * time.Hour)},
		{DifficultyScore: 0.5, CreatedAt: now.Add(-5 * time.Hour)},
		{DifficultyScore: 0.1, NextReview: at(-48 * time.Hour), ReviewCount: 4, CorrectCount: 4, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range cards {
		cards[i].ID = uuid.New()
		cards[i].UserID = userID
		cards[i].Question = "q"
		cards[i].Answer = "a"
		require.NoError(t, repo.Create(ctx, &cards[i]))
	}

	// Another user's due card must not leak in.
	require.NoError(t, repo.Create(ctx, &Flashcard{
		ID: uuid.New(), UserID: uuid.New(), Question: "q", Answer: "a", DifficultyScore: 1, CreatedAt: now,
	}))

	got, err := repo.Due(ctx, userID, now, 10)
	require.NoError(t, err)
	want := SelectDue(cards, now, 10)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID, "position %d", i)
	}

	limited, err := repo.Due(ctx, userID, now, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, want[0].ID, limited[0].ID)
}

func TestPostgres_ConcurrentReviewsAreSerialised(t *testing.T) {
	repo := NewRepository(testutil.NewPostgres(t))
	svc := NewService(repo, inats.NopPublisher{}, nil)
	ctx := context.Background()
	userID := uuid.New()
	now := time.Now()

	card, err := svc.Create(ctx, userID, &CreateFlashcardRequest{Question: "q", Answer: "a"}, now)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(correct bool) {
			defer wg.Done()
			_, err := svc.Grade(ctx, userID, card.ID, correct, now)
			assert.NoError(t, err)
		}(i%2 == 0)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.ReviewCount)
	assert.Equal(t, n/2, stored.CorrectCount)
	assert.GreaterOrEqual(t, stored.DifficultyScore, 0.0)
	assert.LessOrEqual(t, stored.DifficultyScore, 1.0)
}

func TestPostgres_ForeignCardIsNotFound(t *testing.T) {
	repo := NewRepository(testutil.NewPostgres(t))
	svc := NewService(repo, inats.NopPublisher{}, nil)
	ctx := context.Background()

	card, err := svc.Create(ctx, uuid.New(), &CreateFlashcardRequest{Question: "q", Answer: "a"}, time.Now())
	require.NoError(t, err)

	_, err = svc.Grade(ctx, uuid.New(), card.ID, true, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, card.ID, uuid.New()), ErrNotFound)
}
