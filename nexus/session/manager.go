package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/geoip"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

// Manager keeps one session context per client, keyed by the session
// cookie, and shares the backend plumbing between them: the live
// backend, the fallback credential store, the one-way latch, and the
// geo client.
type Manager struct {
	live         backend.AuthBackend
	liveProfiles profiles.Store
	store        backend.FallbackStore
	latch        *backend.Latch
	geo          *geoip.Client

	sessions map[string]*entry
	mu       sync.RWMutex
	ttl      time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// returns a new session manager. live and liveProfiles may be nil when
// the real backend is unconfigured.
func NewManager(live backend.AuthBackend, liveProfiles profiles.Store, store backend.FallbackStore, latch *backend.Latch, geo *geoip.Client, ttl time.Duration) *Manager {
	m := &Manager{
		live:         live,
		liveProfiles: liveProfiles,
		store:        store,
		latch:        latch,
		geo:          geo,
		sessions:     make(map[string]*entry),
		ttl:          ttl,
		stop:         make(chan struct{}),
	}

	// start cleanup goroutine
	go m.cleanupExpired()

	return m
}

// returns a new random session ID
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// creates a new session context with its own adapter
func (m *Manager) CreateSession() (string, *Context, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return "", nil, err
	}

	adapter := backend.NewAdapter(m.live, m.liveProfiles, m.store, m.latch, m.geo)
	ctx := NewContext(adapter)

	now := time.Now()
	m.mu.Lock()
	m.sessions[id] = &entry{
		ctx:          ctx,
		lastActivity: now,
		expiresAt:    now.Add(m.ttl),
	}
	m.mu.Unlock()

	return id, ctx, nil
}

// retrieves a session context by ID, sliding its expiry
func (m *Manager) GetSession(sessionID string) (*Context, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, exists := m.sessions[sessionID]
	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(e.expiresAt) {
		delete(m.sessions, sessionID)
		go e.ctx.Close()
		return nil, false
	}

	e.lastActivity = now
	e.expiresAt = now.Add(m.ttl)

	return e.ctx, true
}

// removes a session and releases its context
func (m *Manager) DeleteSession(sessionID string) {
	m.mu.Lock()
	e, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if exists {
		e.ctx.Close()
	}
}

// returns the number of active sessions
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// stops the cleanup goroutine and releases every context
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})

	m.mu.Lock()
	entries := make([]*entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		entries = append(entries, e)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.ctx.Close()
	}
}

// runs periodically to remove expired sessions
func (m *Manager) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			now := time.Now()

			m.mu.Lock()
			var closed []*entry
			for id, e := range m.sessions {
				if now.After(e.expiresAt) {
					closed = append(closed, e)
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()

			for _, e := range closed {
				e.ctx.Close()
			}
		}
	}
}
