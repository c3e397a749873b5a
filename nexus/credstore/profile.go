package credstore

import (
	"context"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

// The store doubles as the extended-profile document store while the
// fallback is active; profiles live inside the same records.

func (s *Store) Get(_ context.Context, userID string) (*profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, errors.E(errors.KindNotFound, "profile not found")
	}

	p := rec.Profile
	p.UserID = userID
	if p.LoginHistory == nil {
		p.LoginHistory = []profiles.LoginEvent{}
	}

	return &p, nil
}

func (s *Store) Set(_ context.Context, userID string, p *profiles.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return errors.E(errors.KindNotFound, "account no longer exists")
	}

	rec.Profile = *p
	rec.Profile.UserID = userID
	if rec.Profile.LoginHistory == nil {
		rec.Profile.LoginHistory = []profiles.LoginEvent{}
	}

	return s.persist(rec)
}

func (s *Store) Update(_ context.Context, userID string, upd profiles.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return errors.E(errors.KindNotFound, "profile not found")
	}

	if upd.Username != nil {
		rec.Profile.Username = *upd.Username
	}
	if upd.Provider != nil {
		rec.Profile.Provider = *upd.Provider
	}
	if upd.IsNewUser != nil {
		rec.Profile.IsNewUser = *upd.IsNewUser
	}

	return s.persist(rec)
}

func (s *Store) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// exact, case-sensitive match
	for _, rec := range s.records {
		if rec.Profile.Username == username && username != "" {
			return true, nil
		}
	}

	return false, nil
}

func (s *Store) AppendLoginEvent(_ context.Context, userID string, ev profiles.LoginEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return errors.E(errors.KindNotFound, "profile not found")
	}

	duplicate := false
	for _, existing := range rec.Profile.LoginHistory {
		if existing.Equal(ev) {
			duplicate = true
			break
		}
	}

	if !duplicate {
		rec.Profile.LoginHistory = append(rec.Profile.LoginHistory, ev)
	}

	last := ev
	rec.Profile.LastLogin = &last

	return s.persist(rec)
}
