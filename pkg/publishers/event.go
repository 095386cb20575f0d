package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/userdesk/internal/domain"
)

// Activity event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"
	EventUserUpdated    = "user.updated"
)

// Event represents a session activity published downstream. It never carries
// tokens or passwords.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Source     string    `json:"source,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event of typ for user.
func NewEvent(typ string, user domain.User) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     user.ID.String(),
		Username:   user.Username,
		OccurredAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_type": e.Type,
		"user_id":    e.UserID,
	}
}
