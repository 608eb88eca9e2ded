package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// StreamEvents holds every study-economy event for replay by analytics.
const StreamEvents = "IMPIFY_EVENTS"

// SubjectEventPrefix is followed by the event type: impify.events.{type}.
const SubjectEventPrefix = "impify.events"

// SubjectAllEvents matches every event subject.
const SubjectAllEvents = SubjectEventPrefix + ".>"

// Event types.
const (
	EventActivityRecorded      = "activity_recorded"
	EventRewardGranted         = "reward_granted"
	EventFlashcardReviewed     = "flashcard_reviewed"
	EventActionAdmitted        = "action_admitted"
	EventActionDenied          = "action_denied"
	EventSubscriptionActivated = "subscription_activated"
	EventTokensCredited        = "tokens_credited"
)

// Event is the envelope for every message on the events stream.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current UTC time.
func NewEvent(userID uuid.UUID, eventType string, data map[string]any) Event {
	return Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// Subject returns the subject an event of this type is published on.
func Subject(eventType string) string {
	return SubjectEventPrefix + "." + eventType
}
