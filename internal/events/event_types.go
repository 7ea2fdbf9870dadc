package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/clientflow-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventUserLoggedIn           EventType = "user_logged_in"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventPasswordResetCompleted EventType = "password_reset_completed"
	EventSessionsRevoked        EventType = "sessions_revoked"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, user *domain.User, payload interface{}) Event {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if user != nil {
		ev.UserID = user.ID
		ev.Email = user.Email
	}
	return ev
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// PasswordResetRequestedPayload carries the reset token so a mailer can build the link.
type PasswordResetRequestedPayload struct {
	Token   string    `json:"-"`
	Expires time.Time `json:"expires"`
}

// SessionsRevokedPayload payload.
type SessionsRevokedPayload struct {
	Reason  string `json:"reason"`
	Revoked int64  `json:"revoked"`
}
