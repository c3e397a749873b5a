package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var _ backend.AuthBackend = (*Store)(nil)
var _ profiles.Store = (*Store)(nil)

// opens (or creates) a credential store rooted at dir and recovers the
// persisted session pointer
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, usersDirName), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		records:   make(map[string]*record),
		observers: make(map[int]func(*backend.Identity)),
		watchStop: make(chan struct{}),
		now:       time.Now,
	}

	if err := s.loadRecords(); err != nil {
		return nil, err
	}

	s.sessionID = s.readSessionFile()
	if rec, ok := s.records[s.sessionID]; ok {
		id := rec.Identity
		s.current = &id
	}

	return s, nil
}

// stops the cross-process watcher
func (s *Store) Close() {
	s.closedOnce.Do(func() {
		close(s.watchStop)
	})
}

func (s *Store) loadRecords() error {
	entries, err := os.ReadDir(filepath.Join(s.dir, usersDirName))
	if err != nil {
		return fmt.Errorf("failed to read store directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, usersDirName, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read record %s: %w", entry.Name(), err)
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to decode record %s: %w", entry.Name(), err)
		}

		s.records[rec.Identity.ID] = &rec
	}

	return nil
}

// persists one record synchronously; callers hold the lock
func (s *Store) persist(rec *record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	path := filepath.Join(s.dir, usersDirName, rec.Identity.ID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	return nil
}

func (s *Store) sessionPath() string {
	return filepath.Join(s.dir, sessionFileName)
}

func (s *Store) readSessionFile() string {
	data, err := os.ReadFile(s.sessionPath())
	if err != nil {
		return ""
	}
	return string(data)
}

// updates the durable session pointer; callers hold the lock
func (s *Store) writeSession(userID string) {
	s.sessionID = userID

	if userID == "" {
		os.Remove(s.sessionPath()) //nolint:errcheck,gosec // absent file is the desired state
		return
	}

	if err := os.WriteFile(s.sessionPath(), []byte(userID), 0o600); err != nil {
		// the in-memory session stays usable; recovery just won't
		// survive a restart
		_ = err
	}
}

// sets the current identity and returns the observers to notify;
// callers hold the lock and must invoke the returned function after
// releasing it
func (s *Store) setCurrentLocked(id *backend.Identity) func() {
	s.current = id

	if id == nil {
		s.writeSession("")
	} else {
		s.writeSession(id.ID)
	}

	observers := make([]func(*backend.Identity), 0, len(s.observers))
	for _, cb := range s.observers {
		observers = append(observers, cb)
	}

	return func() {
		for _, cb := range observers {
			cb(copyIdentity(id))
		}
	}
}

func copyIdentity(id *backend.Identity) *backend.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

func (s *Store) findByEmail(email string) *record {
	// exact, case-sensitive match
	for _, rec := range s.records {
		if rec.Identity.Email == email {
			return rec
		}
	}
	return nil
}

func (s *Store) CreateAccount(_ context.Context, email, password string) (*backend.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, "failed to create account", err)
	}

	s.mu.Lock()

	if s.findByEmail(email) != nil {
		s.mu.Unlock()
		return nil, errors.E(errors.KindDuplicateEmail, "email address is already in use")
	}

	rec := &record{
		Identity: backend.Identity{
			ID:    uuid.NewString(),
			Email: email,
		},
		PasswordHash: string(hash),
		Profile: profiles.Profile{
			CreatedAt:    s.now(),
			LoginHistory: []profiles.LoginEvent{},
			IsNewUser:    true,
		},
	}
	rec.Profile.UserID = rec.Identity.ID

	s.records[rec.Identity.ID] = rec

	if err := s.persist(rec); err != nil {
		delete(s.records, rec.Identity.ID)
		s.mu.Unlock()
		return nil, err
	}

	id := rec.Identity
	notify := s.setCurrentLocked(&id)
	s.mu.Unlock()
	notify()

	return copyIdentity(&id), nil
}

// describes the local process for last-login records; the store has no
// browser to inspect
func localLoginEvent(now time.Time) profiles.LoginEvent {
	return profiles.LoginEvent{
		Timestamp: now,
		Device:    runtime.GOOS,
		Browser:   "Unknown",
		IP:        "127.0.0.1",
		Location:  "Local Fallback",
	}
}

func (s *Store) Authenticate(_ context.Context, email, password string) (*backend.Identity, error) {
	s.mu.Lock()

	rec := s.findByEmail(email)
	if rec == nil {
		s.mu.Unlock()
		return nil, errors.E(errors.KindNotFound, "no account found for that email")
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
		s.mu.Unlock()
		return nil, errors.E(errors.KindInvalidCredentials, "invalid email or password")
	}

	ev := localLoginEvent(s.now())
	rec.Profile.LastLogin = &ev

	if err := s.persist(rec); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	id := rec.Identity
	notify := s.setCurrentLocked(&id)
	s.mu.Unlock()
	notify()

	return copyIdentity(&id), nil
}

func (s *Store) SocialSignIn(_ context.Context, social backend.SocialIdentity) (*backend.Identity, error) {
	s.mu.Lock()

	var rec *record
	for _, r := range s.records {
		if r.Profile.Provider == social.Provider && r.ProviderID == social.ProviderID {
			rec = r
			break
		}
	}

	if rec == nil {
		rec = &record{
			ProviderID: social.ProviderID,
			Identity: backend.Identity{
				ID:            uuid.NewString(),
				Email:         social.Email,
				DisplayName:   social.Name,
				PhotoURL:      social.AvatarURL,
				EmailVerified: social.EmailVerified,
			},
			Profile: profiles.Profile{
				Provider:     social.Provider,
				CreatedAt:    s.now(),
				LoginHistory: []profiles.LoginEvent{},
				IsNewUser:    true,
			},
		}
		rec.Profile.UserID = rec.Identity.ID
		s.records[rec.Identity.ID] = rec
	}

	if err := s.persist(rec); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	id := rec.Identity
	notify := s.setCurrentLocked(&id)
	s.mu.Unlock()
	notify()

	return copyIdentity(&id), nil
}

func (s *Store) SignOut(_ context.Context, _ string) error {
	s.mu.Lock()
	notify := s.setCurrentLocked(nil)
	s.mu.Unlock()
	notify()
	return nil
}

// applies a mutation to an existing record, refreshing the session
// pointer when the mutated record is the current one
func (s *Store) mutate(userID string, fn func(*record) error) (*backend.Identity, error) {
	s.mu.Lock()

	rec, ok := s.records[userID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.E(errors.KindNotFound, "account no longer exists")
	}

	if err := fn(rec); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if err := s.persist(rec); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	id := rec.Identity

	var notify func()
	if s.current != nil && s.current.ID == userID {
		notify = s.setCurrentLocked(&id)
	}
	s.mu.Unlock()

	if notify != nil {
		notify()
	}

	return copyIdentity(&id), nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, upd backend.ProfileUpdate) (*backend.Identity, error) {
	return s.mutate(userID, func(rec *record) error {
		if upd.DisplayName != nil {
			rec.Identity.DisplayName = *upd.DisplayName
		}
		if upd.PhoneNumber != nil {
			rec.Identity.PhoneNumber = *upd.PhoneNumber
		}
		if upd.PhotoURL != nil {
			rec.Identity.PhotoURL = *upd.PhotoURL
		}
		return nil
	})
}

func (s *Store) UpdateEmail(_ context.Context, userID, newEmail string) (*backend.Identity, error) {
	return s.mutate(userID, func(rec *record) error {
		if other := s.findByEmail(newEmail); other != nil && other.Identity.ID != userID {
			return errors.E(errors.KindDuplicateEmail, "email address is already in use")
		}

		rec.Identity.Email = newEmail
		rec.Identity.EmailVerified = false
		return nil
	})
}

func (s *Store) UpdatePassword(_ context.Context, userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(errors.KindOther, "failed to update password", err)
	}

	_, err = s.mutate(userID, func(rec *record) error {
		rec.PasswordHash = string(hash)
		return nil
	})
	return err
}

// the store has no mail transport, so verification is simulated as
// instantaneous: sending the mail marks the address verified
func (s *Store) SendEmailVerification(_ context.Context, userID string) (*backend.Identity, error) {
	return s.mutate(userID, func(rec *record) error {
		rec.Identity.EmailVerified = true
		return nil
	})
}

func (s *Store) ConfirmEmail(ctx context.Context, userID string) (*backend.Identity, error) {
	return s.SendEmailVerification(ctx, userID)
}

func (s *Store) SendPasswordReset(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findByEmail(email) == nil {
		return errors.E(errors.KindNotFound, "no account found for that email")
	}

	// simulated: no mail transport
	return nil
}

// returns the current session identity, recovering it from disk when
// the in-memory cache is empty
func (s *Store) Current() *backend.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return copyIdentity(s.current)
	}

	if id := s.readSessionFile(); id != "" {
		if rec, ok := s.records[id]; ok {
			cp := rec.Identity
			s.current = &cp
			s.sessionID = id
			return copyIdentity(&cp)
		}
	}

	return nil
}

// persists the remember-me preference
func (s *Store) SetRememberMe(remember bool) {
	value := "false"
	if remember {
		value = "true"
	}

	path := filepath.Join(s.dir, rememberFileName)
	if err := os.WriteFile(path, []byte(value), 0o600); err != nil {
		_ = err // preference only; not worth failing a login over
	}
}

// reads the remember-me preference, defaulting to false
func (s *Store) RememberMe() bool {
	data, err := os.ReadFile(filepath.Join(s.dir, rememberFileName))
	if err != nil {
		return false
	}
	return string(data) == "true"
}
