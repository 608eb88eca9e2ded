package analytics

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is a stored row of the analytics_events table.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type ListParams struct {
	EventType string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
