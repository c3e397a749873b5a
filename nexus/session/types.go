package session

import (
	"sync"
	"time"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/nexus/backend"
)

// State is where a session is in its lifecycle. Every session starts
// Loading and resolves to exactly one of the other two states once the
// persisted session (if any) has been recovered.
type State string

const (
	StateLoading       State = "loading"
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
)

// RequestMeta carries the per-request details used to enrich login
// records.
type RequestMeta struct {
	UserAgent string
	IP        string
}

// Snapshot is one observable point-in-time view of a session.
type Snapshot struct {
	State    State             `json:"state"`
	Identity *backend.Identity `json:"identity,omitempty"`
	Loading  bool              `json:"loading"`
	Errors   []string          `json:"errors"`
	Mode     string            `json:"mode"`
}

// Context is one client's authentication session: the current state,
// the signed-in identity, the in-flight flag, and the accumulated
// operation errors. All operations report success as a bool; failure
// details land in the error list as display strings.
type Context struct {
	adapter *backend.Adapter

	mu        sync.Mutex
	state     State
	identity  *backend.Identity
	loading   bool
	errs      []string
	lastKind  errors.Kind
	observers map[int]func(Snapshot)
	nextObsID int

	unsub func()
}

// tracked per session by the manager
type entry struct {
	ctx          *Context
	lastActivity time.Time
	expiresAt    time.Time
}
