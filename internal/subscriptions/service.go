package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/database"
	inats "github.com/impify/impify/internal/nats"
)

// TokenGranter credits a plan's monthly tokens as part of activation. It is
// implemented by the economy store.
type TokenGranter interface {
	GrantPlanTokens(ctx context.Context, q database.DBTX, userID uuid.UUID, tokens int, now time.Time) error
}

type Service struct {
	repo      Repository
	catalog   *Catalog
	granter   TokenGranter
	publisher inats.EventPublisher
	length    time.Duration
}

// NewService creates the subscription service. length is the default
// subscription term when an activation does not specify an expiry.
func NewService(repo Repository, catalog *Catalog, granter TokenGranter, publisher inats.EventPublisher, length time.Duration) *Service {
	if length <= 0 {
		length = 30 * 24 * time.Hour
	}
	return &Service{
		repo:      repo,
		catalog:   catalog,
		granter:   granter,
		publisher: publisher,
		length:    length,
	}
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Status returns the effective subscription at now. Lapsed subscriptions are
// deactivated on the way and reported as the free fallback.
func (s *Service) Status(ctx context.Context, userID uuid.UUID, now time.Time) (Status, error) {
	sub, err := s.repo.Active(ctx, userID, now)
	if err != nil {
		return Status{}, fmt.Errorf("loading subscription: %w", err)
	}
	if sub == nil || sub.Expired(now) {
		return FreeStatus(), nil
	}
	return Status{Tier: sub.Tier, Active: true, ExpiresAt: sub.ExpiresAt}, nil
}

// Activate makes tier the user's active subscription and credits the plan's
// monthly tokens. Unlimited plans are credited nothing. A nil expiresAt means
// now plus the default term.
func (s *Service) Activate(ctx context.Context, userID uuid.UUID, tier Tier, expiresAt *time.Time, now time.Time) (*Subscription, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	if expiresAt == nil {
		exp := now.Add(s.length)
		expiresAt = &exp
	}

	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Tier:      tier,
		Active:    true,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}

	tokens := s.catalog.Plan(tier).MonthlyTokens
	var grant GrantFunc
	if s.granter != nil && tokens > 0 {
		grant = func(ctx context.Context, q database.DBTX) error {
			return s.granter.GrantPlanTokens(ctx, q, userID, tokens, now)
		}
	}

	if err := s.repo.Activate(ctx, sub, grant); err != nil {
		return nil, fmt.Errorf("activating subscription: %w", err)
	}

	slog.Info("subscription activated", "user_id", userID, "tier", tier, "expires_at", expiresAt)
	inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventSubscriptionActivated, map[string]any{
		"tier":           string(tier),
		"monthly_tokens": tokens,
		"expires_at":     expiresAt,
	}))
	return sub, nil
}
