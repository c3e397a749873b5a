package credstore

import (
	"sync"
	"time"

	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

const (
	usersDirName     = "users"
	sessionFileName  = "current_session"
	rememberFileName = "remember_me"

	// how often the watcher checks the session pointer for changes
	// made by another process sharing the same directory
	watchInterval = 250 * time.Millisecond
)

// record is one persisted account: the identity, its credential, and
// the embedded extended profile.
type record struct {
	Identity     backend.Identity `json:"identity"`
	PasswordHash string           `json:"password_hash,omitempty"`
	ProviderID   string           `json:"provider_id,omitempty"`
	Profile      profiles.Profile `json:"profile"`
}

// Store is a durable, file-backed stand-in for the identity backend,
// used when the real backend is unprovisioned. All mutations are
// persisted synchronously, one JSON file per record.
type Store struct {
	dir string

	mu        sync.Mutex
	records   map[string]*record
	current   *backend.Identity
	sessionID string // last observed session pointer content

	observers  map[int]func(*backend.Identity)
	nextObsID  int
	watchStop  chan struct{}
	watchOnce  sync.Once
	closedOnce sync.Once

	now func() time.Time
}
