package telemetry

import (
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the authenticator and the transports.
const (
	EventRegister    = "user_registered"
	EventLogin       = "login_succeeded"
	EventLoginFailed = "login_failed"
	EventLogout      = "logout"
	EventRequest     = "request"
)

// Event is a best-effort audit/telemetry record. It never carries token material; SessionID
// is the token's SHA-256 hash.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"event_type"`
	Source    string            `json:"source"`
	UserID    string            `json:"user_id,omitempty"`
	Username  string            `json:"username,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewEvent returns an Event of the given type with a fresh ID and the current time.
func NewEvent(eventType, source string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
