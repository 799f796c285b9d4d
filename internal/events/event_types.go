package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/corvid-labs/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventLoginFailed    EventType = "login_failed"
)

// Event represents an authentication event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh ID.
func NewEvent(eventType EventType, userID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Timestamp: at,
		Payload:   payload,
	}
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Role domain.Role `json:"role"`
}

// UserLoggedInPayload payload.
type UserLoggedInPayload struct {
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginFailedPayload payload. Reason is internal only and never sent to clients.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}
