package credstore

import (
	"time"

	"codeberg.org/nexusdigital/identity/nexus/backend"
)

// registers cb for identity changes. The callback is invoked
// immediately with the current identity, then again whenever the
// durable session pointer changes, including changes made by another
// process sharing the store directory. Returns an unsubscribe handle.
func (s *Store) Subscribe(cb func(*backend.Identity)) func() {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = cb
	current := copyIdentity(s.current)
	s.mu.Unlock()

	// immediate invocation outside the lock
	cb(current)

	s.watchOnce.Do(func() {
		go s.watchSession()
	})

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// polls the session pointer file to pick up changes made by other
// processes. Last write wins, matching the storage medium's per-key
// atomicity; no locking across processes is attempted.
func (s *Store) watchSession() {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.watchStop:
			return
		case <-ticker.C:
			s.checkSessionFile()
		}
	}
}

func (s *Store) checkSessionFile() {
	onDisk := s.readSessionFile()

	s.mu.Lock()

	if onDisk == s.sessionID {
		s.mu.Unlock()
		return
	}

	s.sessionID = onDisk

	var id *backend.Identity
	if rec, ok := s.records[onDisk]; ok {
		cp := rec.Identity
		id = &cp
	}
	s.current = id

	observers := make([]func(*backend.Identity), 0, len(s.observers))
	for _, cb := range s.observers {
		observers = append(observers, cb)
	}
	s.mu.Unlock()

	for _, cb := range observers {
		cb(copyIdentity(id))
	}
}
