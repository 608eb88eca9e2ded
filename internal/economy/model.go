package economy

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("economy not found")
	ErrInvalidAmount = errors.New("amount must be positive")
)

type ActivityKind string

const (
	ActivityLogin               ActivityKind = "login"
	ActivityUpload              ActivityKind = "upload"
	ActivityFlashcardGeneration ActivityKind = "flashcard_generation"
	ActivityFlashcardReview     ActivityKind = "flashcard_review"
	ActivityChat                ActivityKind = "chat"
	ActivityFileChat            ActivityKind = "file_chat"
)

// Starting balances for a freshly created economy.
const (
	InitialTokens        = 100
	InitialMonthlyTokens = 100
)

// UserEconomy is the per-user token, XP and streak state. Dates are calendar
// days as produced by the calendar package.
type UserEconomy struct {
	UserID           uuid.UUID  `json:"user_id"`
	Tokens           int        `json:"tokens"`
	MonthlyTokens    int        `json:"monthly_tokens"`
	XP               int        `json:"xp"`
	Level            int        `json:"level"`
	Streak           int        `json:"streak"`
	LastActiveDate   *time.Time `json:"last_active_date,omitempty"`
	MonthlyResetDate *time.Time `json:"monthly_reset_date,omitempty"`
}

// NewUserEconomy returns the row created on first contact with a user.
func NewUserEconomy(userID uuid.UUID, today, monthStart time.Time) UserEconomy {
	return UserEconomy{
		UserID:           userID,
		Tokens:           InitialTokens,
		MonthlyTokens:    InitialMonthlyTokens,
		XP:               0,
		Level:            1,
		Streak:           1,
		LastActiveDate:   &today,
		MonthlyResetDate: &monthStart,
	}
}

// Rewards describes what a single activity granted.
type Rewards struct {
	XPGained        int  `json:"xp_gained"`
	LevelUp         bool `json:"level_up"`
	LevelUpTokens   int  `json:"level_up_tokens,omitempty"`
	StreakMilestone int  `json:"streak_milestone,omitempty"`
	MilestoneTokens int  `json:"milestone_tokens,omitempty"`
	MonthlyBonus    int  `json:"monthly_bonus,omitempty"`
}

// Tokens is the total credited to the balance by this activity.
func (r Rewards) Tokens() int {
	return r.LevelUpTokens + r.MilestoneTokens + r.MonthlyBonus
}

type ActivityResult struct {
	Economy UserEconomy `json:"economy"`
	Rewards Rewards     `json:"rewards"`
}

type TokenInfo struct {
	Tokens                int       `json:"tokens"`
	MonthlyTokens         int       `json:"monthly_tokens"`
	Streak                int       `json:"streak"`
	Level                 int       `json:"level"`
	XP                    int       `json:"xp"`
	XPToNextLevel         int       `json:"xp_to_next_level"`
	SubscriptionTier      string    `json:"subscription_tier"`
	DaysUntilMonthlyReset int       `json:"days_until_monthly_reset"`
	NextMonthlyReset      time.Time `json:"next_monthly_reset"`
}

type RecordActivityRequest struct {
	ActivityType string `json:"activity_type" validate:"required,max=64"`
}

type CreditRequest struct {
	Amount int `json:"amount" validate:"required,gt=0,lte=1000000"`
}
