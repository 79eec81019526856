package domain

import "time"

// TokenResponse is what the login endpoint returns.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
}

// Mutation event names published on the books channel.
const (
	EventBookCreated = "book_created"
	EventBookUpdated = "book_updated"
	EventBookDeleted = "book_deleted"
)

// Event is the ephemeral message broadcast after a mutation commits. It is
// fire-and-forget: there is no persistence and no delivery guarantee for
// absent subscribers.
type Event struct {
	Name string         `json:"event"`
	Data map[string]any `json:"data"`
}

// NewEvent stamps the changed-field payload with the event timestamp and,
// when known, the acting user.
func NewEvent(name string, data map[string]any, username string, now time.Time) Event {
	if data == nil {
		data = make(map[string]any)
	}
	data["timestamp"] = now.Format(time.RFC3339Nano)
	if username != "" {
		data["event_user"] = username
	}
	return Event{Name: name, Data: data}
}
