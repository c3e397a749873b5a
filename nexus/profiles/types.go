package profiles

import (
	"context"
	"time"
)

// LoginEvent is one recorded login: when, from what, and from where.
// Events are append-only; history is never mutated or reordered.
type LoginEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	IP        string    `json:"ip"`
	Location  string    `json:"location"`
}

// reports whether two events describe the same login, used for
// append-unique semantics on login history
func (e LoginEvent) Equal(other LoginEvent) bool {
	return e.Timestamp.Equal(other.Timestamp) &&
		e.Device == other.Device &&
		e.Browser == other.Browser &&
		e.IP == other.IP &&
		e.Location == other.Location
}

// Profile holds the backend-resident fields that are not part of the
// bare identity record. One profile per identity, keyed by user ID.
type Profile struct {
	UserID       string       `json:"user_id"`
	Username     string       `json:"username,omitempty"`
	Provider     string       `json:"provider,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastLogin    *LoginEvent  `json:"last_login,omitempty"`
	LoginHistory []LoginEvent `json:"login_history"`
	IsNewUser    bool         `json:"is_new_user"`
}

// Update carries partial profile changes; nil fields are left untouched.
type Update struct {
	Username  *string
	Provider  *string
	IsNewUser *bool
}

// Store is the document-store surface for extended profiles.
type Store interface {
	// returns the profile for userID, classified NotFound when absent
	Get(ctx context.Context, userID string) (*Profile, error)

	// creates or replaces the profile for userID
	Set(ctx context.Context, userID string, p *Profile) error

	// applies a partial update, classified NotFound when absent
	Update(ctx context.Context, userID string, upd Update) error

	// reports whether any profile already claims username (exact match)
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// appends ev to the login history unless an identical event is
	// already present, and records it as the last login
	AppendLoginEvent(ctx context.Context, userID string, ev LoginEvent) error
}
