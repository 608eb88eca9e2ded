package subscriptions

import (
	"time"

	"github.com/google/uuid"
)

type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// Unlimited marks a plan limit that is never enforced.
const Unlimited = -1

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierPremium:
		return true
	}
	return false
}

// Plan is the allotment attached to a tier.
type Plan struct {
	Tier          Tier `json:"tier"`
	MonthlyTokens int  `json:"monthly_tokens"`
	UploadsPerDay int  `json:"uploads_per_day"`
	ChatsPerDay   int  `json:"chats_per_day"`
}

// Subscription is one row of a user's subscription history.
type Subscription struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Tier      Tier       `json:"tier"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the subscription has lapsed at now.
func (s *Subscription) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// Status is the effective subscription of a user at a point in time. A user
// without a live subscription gets the free fallback, which is always active.
type Status struct {
	Tier      Tier       `json:"tier"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func FreeStatus() Status {
	return Status{Tier: TierFree, Active: true}
}

func (s Status) IsPremium() bool {
	return s.Active && s.Tier == TierPremium
}

type ActivateRequest struct {
	UserID    string     `json:"user_id" validate:"required,uuid"`
	Tier      string     `json:"tier" validate:"required,oneof=free basic pro premium"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
