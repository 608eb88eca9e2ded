package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/economy"
	"github.com/impify/impify/internal/metrics"
	inats "github.com/impify/impify/internal/nats"
	"github.com/impify/impify/internal/subscriptions"
)

// EconomyStore is the part of the economy service the gate needs.
type EconomyStore interface {
	// Refresh applies any due monthly reset and resolves the subscription,
	// deactivating it if it has lapsed.
	Refresh(ctx context.Context, userID uuid.UUID, now time.Time) (*economy.UserEconomy, subscriptions.Status, error)
	TryDebit(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
}

// Costs are the token prices charged once the free allowance is used up.
type Costs struct {
	Chat   int
	Upload int
}

type Service struct {
	econ      EconomyStore
	counter   DailyCounter
	catalog   *subscriptions.Catalog
	costs     Costs
	publisher inats.EventPublisher
}

func NewService(econ EconomyStore, counter DailyCounter, catalog *subscriptions.Catalog, costs Costs, publisher inats.EventPublisher) *Service {
	return &Service{
		econ:      econ,
		counter:   counter,
		catalog:   catalog,
		costs:     costs,
		publisher: publisher,
	}
}

// CostFor returns the configured token price of action.
func (s *Service) CostFor(action Action) int {
	if action == ActionUpload {
		return s.costs.Upload
	}
	return s.costs.Chat
}

// Admit decides whether userID may perform action now, debiting cost tokens
// when the free allowance is exhausted. A denial is false, not an error.
func (s *Service) Admit(ctx context.Context, userID uuid.UUID, action Action, cost int, now time.Time) (bool, error) {
	d, err := s.Decide(ctx, userID, action, cost, now)
	if err != nil {
		return false, err
	}
	return d.Admitted, nil
}

// Decide is Admit with the reason for the outcome.
func (s *Service) Decide(ctx context.Context, userID uuid.UUID, action Action, cost int, now time.Time) (Decision, error) {
	counter, err := counterName(action)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %q", err, action)
	}
	if cost < 0 {
		cost = s.CostFor(action)
	}

	econ, status, err := s.econ.Refresh(ctx, userID, now)
	if err != nil {
		return Decision{}, fmt.Errorf("refreshing economy: %w", err)
	}

	d := Decision{Action: action}
	switch {
	case status.IsPremium():
		d.Admitted, d.Reason = true, ReasonPremium
	default:
		d, err = s.decideMetered(ctx, userID, action, counter, cost, *econ, status, now)
		if err != nil {
			return Decision{}, err
		}
	}

	s.report(ctx, userID, d)
	return d, nil
}

func (s *Service) decideMetered(ctx context.Context, userID uuid.UUID, action Action, counter string, cost int,
	econ economy.UserEconomy, status subscriptions.Status, now time.Time) (Decision, error) {
	d := Decision{Action: action}

	limit := dailyLimit(s.catalog.Plan(status.Tier), action)
	if limit == subscriptions.Unlimited {
		d.Admitted, d.Reason = true, ReasonUnlimitedPlan
		return d, nil
	}

	free, err := s.counter.Allow(ctx, userID, counter, limit, now)
	if err != nil {
		slog.Warn("daily usage counter unavailable, charging tokens", "user_id", userID, "action", action, "error", err)
	} else if free {
		d.Admitted, d.Reason = true, ReasonFreeQuota
		return d, nil
	}

	if !CanSpend(econ, status, cost) {
		d.Reason = ReasonInsufficientTokens
		return d, nil
	}

	ok, err := s.econ.TryDebit(ctx, userID, cost)
	if err != nil {
		return Decision{}, fmt.Errorf("charging for %s: %w", action, err)
	}
	if !ok {
		d.Reason = ReasonInsufficientTokens
		return d, nil
	}
	d.Admitted, d.Reason, d.TokensSpent = true, ReasonTokens, cost
	return d, nil
}

func (s *Service) report(ctx context.Context, userID uuid.UUID, d Decision) {
	metrics.GateDecisionsTotal.WithLabelValues(string(d.Action), d.Reason).Inc()

	eventType := inats.EventActionAdmitted
	if !d.Admitted {
		eventType = inats.EventActionDenied
	}
	inats.Emit(ctx, s.publisher, inats.NewEvent(userID, eventType, map[string]any{
		"action":       string(d.Action),
		"reason":       d.Reason,
		"tokens_spent": d.TokensSpent,
	}))
}

// Usage reports today's free allowance consumption. Counter errors are
// logged and reported as zero usage.
func (s *Service) Usage(ctx context.Context, userID uuid.UUID, now time.Time) (*Usage, error) {
	econ, status, err := s.econ.Refresh(ctx, userID, now)
	if err != nil {
		return nil, fmt.Errorf("refreshing economy: %w", err)
	}

	plan := s.catalog.Plan(status.Tier)
	u := &Usage{
		Tier:         string(status.Tier),
		Tokens:       econ.Tokens,
		ChatsLimit:   plan.ChatsPerDay,
		UploadsLimit: plan.UploadsPerDay,
		ChatCost:     s.costs.Chat,
		UploadCost:   s.costs.Upload,
	}
	if status.IsPremium() {
		u.ChatsLimit, u.UploadsLimit = subscriptions.Unlimited, subscriptions.Unlimited
	}

	if u.ChatsToday, err = s.counter.Usage(ctx, userID, "chat", now); err != nil {
		slog.Warn("reading chat usage", "user_id", userID, "error", err)
	}
	if u.UploadsToday, err = s.counter.Usage(ctx, userID, "upload", now); err != nil {
		slog.Warn("reading upload usage", "user_id", userID, "error", err)
	}
	return u, nil
}
