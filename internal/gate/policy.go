package gate

import (
	"errors"

	"github.com/impify/impify/internal/economy"
	"github.com/impify/impify/internal/subscriptions"
)

var ErrUnknownAction = errors.New("unknown gated action")

// Action is a token-gated feature.
type Action string

const (
	ActionChat     Action = "chat"
	ActionFileChat Action = "file_chat"
	ActionUpload   Action = "upload"
)

// Reasons reported with a decision.
const (
	ReasonPremium            = "premium"
	ReasonUnlimitedPlan      = "unlimited_plan"
	ReasonFreeQuota          = "free_quota"
	ReasonTokens             = "tokens"
	ReasonInsufficientTokens = "insufficient_tokens"
)

type Decision struct {
	Action      Action `json:"action"`
	Admitted    bool   `json:"admitted"`
	Reason      string `json:"reason"`
	TokensSpent int    `json:"tokens_spent"`
}

// CanSpend reports whether econ may pay cost under sub. An active premium
// subscription can always spend.
func CanSpend(econ economy.UserEconomy, sub subscriptions.Status, cost int) bool {
	if sub.IsPremium() {
		return true
	}
	return econ.Tokens >= cost
}

// counterName is the daily counter an action draws from. Chatting with a
// file shares the chat allowance.
func counterName(a Action) (string, error) {
	switch a {
	case ActionChat, ActionFileChat:
		return "chat", nil
	case ActionUpload:
		return "upload", nil
	}
	return "", ErrUnknownAction
}

// dailyLimit returns the plan's free daily allowance for a.
func dailyLimit(plan subscriptions.Plan, a Action) int {
	if a == ActionUpload {
		return plan.UploadsPerDay
	}
	return plan.ChatsPerDay
}

// Usage is the caller's free allowance consumption for the current day.
// A limit of -1 means unlimited.
type Usage struct {
	Tier         string `json:"tier"`
	Tokens       int    `json:"tokens"`
	ChatsToday   int    `json:"chats_today"`
	ChatsLimit   int    `json:"chats_limit"`
	UploadsToday int    `json:"uploads_today"`
	UploadsLimit int    `json:"uploads_limit"`
	ChatCost     int    `json:"chat_cost"`
	UploadCost   int    `json:"upload_cost"`
}
