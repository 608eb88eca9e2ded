package economy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/impify/impify/internal/calendar"
	"github.com/impify/impify/internal/database"
	"github.com/impify/impify/internal/metrics"
	inats "github.com/impify/impify/internal/nats"
	"github.com/impify/impify/internal/subscriptions"
)

// SubscriptionSource resolves a user's effective subscription.
type SubscriptionSource interface {
	Status(ctx context.Context, userID uuid.UUID, now time.Time) (subscriptions.Status, error)
}

type Service struct {
	repo      Repository
	engine    *Engine
	cal       *calendar.Calendar
	subs      SubscriptionSource
	catalog   *subscriptions.Catalog
	publisher inats.EventPublisher
}

func NewService(repo Repository, cal *calendar.Calendar, subs SubscriptionSource, catalog *subscriptions.Catalog, publisher inats.EventPublisher) *Service {
	return &Service{
		repo:      repo,
		engine:    NewEngine(cal),
		cal:       cal,
		subs:      subs,
		catalog:   catalog,
		publisher: publisher,
	}
}

// SetSubscriptions breaks the construction cycle with the subscription
// service, which in turn needs this service as its token granter.
func (s *Service) SetSubscriptions(subs SubscriptionSource) {
	s.subs = subs
}

type activityOptions struct {
	skipMonthlyReset bool
}

type Option func(*activityOptions)

// SkipMonthlyReset records the activity without checking for a month
// rollover. Used on the login path, where the reset runs on the next gated
// action instead.
func SkipMonthlyReset() Option {
	return func(o *activityOptions) { o.skipMonthlyReset = true }
}

func (s *Service) defaults(userID uuid.UUID, now time.Time) UserEconomy {
	return NewUserEconomy(userID, s.cal.Today(now), s.cal.MonthStart(now))
}

// Ensure returns the user's economy, creating it on first contact.
func (s *Service) Ensure(ctx context.Context, userID uuid.UUID, now time.Time) (*UserEconomy, error) {
	e, err := s.repo.Ensure(ctx, s.defaults(userID, now))
	if err != nil {
		return nil, fmt.Errorf("ensuring economy: %w", err)
	}
	return e, nil
}

func (s *Service) status(ctx context.Context, userID uuid.UUID, now time.Time) (subscriptions.Status, error) {
	if s.subs == nil {
		return subscriptions.FreeStatus(), nil
	}
	return s.subs.Status(ctx, userID, now)
}

// RecordActivity applies an activity to the user's economy atomically and
// reports the rewards it produced. Unknown kinds earn the default XP.
func (s *Service) RecordActivity(ctx context.Context, userID uuid.UUID, kind ActivityKind, now time.Time, opts ...Option) (*ActivityResult, error) {
	var o activityOptions
	for _, opt := range opts {
		opt(&o)
	}

	if _, known := XPFor(kind); !known {
		slog.Warn("unknown activity kind, using default xp", "kind", kind, "user_id", userID)
	}

	allotment := 0
	if !o.skipMonthlyReset {
		st, err := s.status(ctx, userID, now)
		if err != nil {
			return nil, fmt.Errorf("resolving subscription: %w", err)
		}
		allotment = s.catalog.MonthlyAllotment(st.Tier)
	}

	var rw Rewards
	e, err := s.repo.Update(ctx, s.defaults(userID, now), func(e *UserEconomy) error {
		var bonus int
		if !o.skipMonthlyReset {
			bonus, _ = ApplyMonthlyReset(e, allotment, s.cal.MonthStart(now))
		}
		next, activity := s.engine.RecordActivity(*e, kind, now)
		activity.MonthlyBonus = bonus
		*e = next
		rw = activity
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	s.report(ctx, userID, kind, e, rw)
	return &ActivityResult{Economy: *e, Rewards: rw}, nil
}

func (s *Service) report(ctx context.Context, userID uuid.UUID, kind ActivityKind, e *UserEconomy, rw Rewards) {
	metrics.ActivitiesRecordedTotal.WithLabelValues(string(kind)).Inc()
	inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventActivityRecorded, map[string]any{
		"activity_type": string(kind),
		"xp_gained":     rw.XPGained,
		"xp":            e.XP,
		"streak":        e.Streak,
	}))

	if rw.LevelUp {
		metrics.RewardsGrantedTotal.WithLabelValues("level_up").Add(float64(rw.LevelUpTokens))
		inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventRewardGranted, map[string]any{
			"reward": "level_up",
			"level":  e.Level,
			"tokens": rw.LevelUpTokens,
		}))
	}
	if rw.MilestoneTokens > 0 {
		metrics.RewardsGrantedTotal.WithLabelValues("streak_milestone").Add(float64(rw.MilestoneTokens))
		inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventRewardGranted, map[string]any{
			"reward": "streak_milestone",
			"streak": rw.StreakMilestone,
			"tokens": rw.MilestoneTokens,
		}))
	}
	if rw.MonthlyBonus > 0 {
		metrics.RewardsGrantedTotal.WithLabelValues("first_month_bonus").Add(float64(rw.MonthlyBonus))
	}
}

// Refresh returns the user's economy with the monthly allotment brought up to
// date, together with the subscription status used for it. The row is only
// locked when a reset is actually due.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, now time.Time) (*UserEconomy, subscriptions.Status, error) {
	st, err := s.status(ctx, userID, now)
	if err != nil {
		return nil, subscriptions.Status{}, fmt.Errorf("resolving subscription: %w", err)
	}

	e, err := s.Ensure(ctx, userID, now)
	if err != nil {
		return nil, st, err
	}

	monthStart := s.cal.MonthStart(now)
	if !NeedsMonthlyReset(*e, monthStart) {
		return e, st, nil
	}

	allotment := s.catalog.MonthlyAllotment(st.Tier)
	var bonus int
	e, err = s.repo.Update(ctx, s.defaults(userID, now), func(e *UserEconomy) error {
		bonus, _ = ApplyMonthlyReset(e, allotment, monthStart)
		return nil
	})
	if err != nil {
		return nil, st, fmt.Errorf("applying monthly reset: %w", err)
	}

	slog.Info("monthly allotment reset", "user_id", userID, "tier", st.Tier, "monthly_tokens", e.MonthlyTokens, "bonus", bonus)
	return e, st, nil
}

// TryDebit atomically spends amount tokens if the balance covers it.
func (s *Service) TryDebit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	if amount <= 0 {
		return true, nil
	}
	ok, err := s.repo.Debit(ctx, userID, amount)
	if err != nil {
		return false, fmt.Errorf("debiting %d tokens: %w", amount, err)
	}
	return ok, nil
}

// Credit adds amount tokens to the user's balance.
func (s *Service) Credit(ctx context.Context, userID uuid.UUID, amount int, now time.Time) (*UserEconomy, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	e, err := s.repo.Update(ctx, s.defaults(userID, now), func(e *UserEconomy) error {
		e.Tokens += amount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crediting tokens: %w", err)
	}

	inats.Emit(ctx, s.publisher, inats.NewEvent(userID, inats.EventTokensCredited, map[string]any{
		"amount":  amount,
		"balance": e.Tokens,
	}))
	return e, nil
}

// GrantPlanTokens implements subscriptions.TokenGranter.
func (s *Service) GrantPlanTokens(ctx context.Context, q database.DBTX, userID uuid.UUID, tokens int, now time.Time) error {
	return s.repo.GrantPlanTokens(ctx, q, s.defaults(userID, now), tokens)
}

// TokenInfo summarises the user's balance, progress and next monthly reset.
func (s *Service) TokenInfo(ctx context.Context, userID uuid.UUID, now time.Time) (*TokenInfo, error) {
	e, st, err := s.Refresh(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	resetBase := s.cal.MonthStart(now)
	if e.MonthlyResetDate != nil {
		resetBase = *e.MonthlyResetDate
	}
	next := calendar.NextMonth(resetBase)

	return &TokenInfo{
		Tokens:                e.Tokens,
		MonthlyTokens:         e.MonthlyTokens,
		Streak:                e.Streak,
		Level:                 e.Level,
		XP:                    e.XP,
		XPToNextLevel:         XPToNextLevel(e.XP),
		SubscriptionTier:      string(st.Tier),
		DaysUntilMonthlyReset: max(0, calendar.DaysBetween(s.cal.Today(now), next)),
		NextMonthlyReset:      next,
	}, nil
}
