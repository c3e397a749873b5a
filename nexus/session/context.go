package session

import (
	"context"
	"time"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/internal/logger"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

// how long fire-and-forget enrichment work may run after the
// originating request has already been answered
const enrichTimeout = 10 * time.Second

// creates a session context bound to its own adapter. The context
// starts Loading and resolves as soon as the adapter reports the
// recovered (or absent) identity.
func NewContext(adapter *backend.Adapter) *Context {
	c := &Context{
		adapter:   adapter,
		state:     StateLoading,
		observers: make(map[int]func(Snapshot)),
	}

	// the immediate invocation resolves Loading; later invocations
	// track sign-ins and sign-outs, including ones observed from the
	// shared credential store
	c.unsub = adapter.Subscribe(func(id *backend.Identity) {
		c.onIdentity(id)
	})

	return c
}

// releases the context's subscriptions
func (c *Context) Close() {
	if c.unsub != nil {
		c.unsub()
	}
	c.adapter.Close()
}

func (c *Context) onIdentity(id *backend.Identity) {
	c.mu.Lock()
	c.identity = id
	if id != nil {
		c.state = StateAuthenticated
	} else {
		c.state = StateAnonymous
	}
	snap, observers := c.snapshotLocked()
	c.mu.Unlock()

	for _, cb := range observers {
		cb(snap)
	}
}

// callers hold the lock
func (c *Context) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snap := Snapshot{
		State:   c.state,
		Loading: c.loading,
		Errors:  append([]string{}, c.errs...),
		Mode:    c.adapter.Mode().String(),
	}
	if c.identity != nil {
		cp := *c.identity
		snap.Identity = &cp
	}

	observers := make([]func(Snapshot), 0, len(c.observers))
	for _, cb := range c.observers {
		observers = append(observers, cb)
	}

	return snap, observers
}

func (c *Context) notify() {
	c.mu.Lock()
	snap, observers := c.snapshotLocked()
	c.mu.Unlock()

	for _, cb := range observers {
		cb(snap)
	}
}

// registers cb for session snapshots; invoked immediately with the
// current snapshot, then on every change. Returns an unsubscribe handle.
func (c *Context) Subscribe(cb func(Snapshot)) func() {
	c.mu.Lock()
	obsID := c.nextObsID
	c.nextObsID++
	c.observers[obsID] = cb
	snap, _ := c.snapshotLocked()
	c.mu.Unlock()

	cb(snap)

	return func() {
		c.mu.Lock()
		delete(c.observers, obsID)
		c.mu.Unlock()
	}
}

// every operation clears the accumulated errors on entry
func (c *Context) begin() {
	c.mu.Lock()
	c.errs = nil
	c.lastKind = ""
	c.loading = true
	c.mu.Unlock()
	c.notify()
}

func (c *Context) finish(err error) bool {
	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.errs = append(c.errs, errors.Display(err))
		c.lastKind = errors.KindOf(err)
	}
	c.mu.Unlock()
	c.notify()

	return err == nil
}

// returns the signed-in identity, or nil
func (c *Context) Current() *backend.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return nil
	}
	cp := *c.identity
	return &cp
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Context) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.errs...)
}

// returns the classification of the most recent operation's failure, so
// callers can decide on status codes without parsing display strings.
// Empty when the last operation succeeded.
func (c *Context) LastErrorKind() errors.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastKind
}

func (c *Context) Snapshot() Snapshot {
	c.mu.Lock()
	snap, _ := c.snapshotLocked()
	c.mu.Unlock()
	return snap
}

// requires a signed-in identity
func (c *Context) requireCurrent() (*backend.Identity, error) {
	if id := c.Current(); id != nil {
		return id, nil
	}
	return nil, errors.E(errors.KindNoActiveSession, "no user is currently signed in")
}

// creates an account with the given display name and optional phone
// number, then signs it in. A verification mail is sent and the login
// is recorded without blocking the caller.
func (c *Context) Register(ctx context.Context, email, password, displayName, phoneNumber string, remember bool, meta RequestMeta) bool {
	c.begin()

	c.adapter.SetRememberMe(remember)

	id, err := c.adapter.CreateAccount(ctx, email, password)
	if err != nil {
		return c.finish(err)
	}

	if displayName != "" || phoneNumber != "" {
		upd := backend.ProfileUpdate{}
		if displayName != "" {
			upd.DisplayName = &displayName
		}
		if phoneNumber != "" {
			upd.PhoneNumber = &phoneNumber
		}

		if _, err := c.adapter.UpdateProfile(ctx, id.ID, upd); err != nil {
			// the account exists and is signed in; the name can be set
			// again from the profile page
			logger.ErrorErr(err, "failed to set profile at registration", "user_id", id.ID)
		}
	}

	if _, err := c.adapter.SendEmailVerification(ctx, id.ID); err != nil {
		// the account exists and is signed in; a failed mail is not
		// worth failing registration over
		logger.ErrorErr(err, "failed to send verification mail", "user_id", id.ID)
	}

	go c.afterSignIn(id, "password", true, meta)

	return c.finish(nil)
}

// signs in with email and password
func (c *Context) Login(ctx context.Context, email, password string, remember bool, meta RequestMeta) bool {
	c.begin()

	c.adapter.SetRememberMe(remember)

	id, err := c.adapter.Authenticate(ctx, email, password)
	if err != nil {
		return c.finish(err)
	}

	go c.afterSignIn(id, "password", false, meta)

	return c.finish(nil)
}

// signs in with an identity asserted by a social provider
func (c *Context) SocialLogin(ctx context.Context, social backend.SocialIdentity, meta RequestMeta) bool {
	c.begin()

	id, err := c.adapter.SocialSignIn(ctx, social)
	if err != nil {
		return c.finish(err)
	}

	go c.afterSignIn(id, social.Provider, false, meta)

	return c.finish(nil)
}

// ensures the extended profile exists and records the login. Runs
// after the originating request has been answered; failures are logged
// and never surface to the client.
func (c *Context) afterSignIn(id *backend.Identity, provider string, isNew bool, meta RequestMeta) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	_, err := c.adapter.GetProfile(ctx, id.ID)
	if err != nil {
		if errors.KindOf(err) != errors.KindNotFound {
			logger.ErrorErr(err, "failed to load profile after sign-in", "user_id", id.ID)
			return
		}

		// first sign-in on this backend: synthesize the profile
		p := &profiles.Profile{
			UserID:       id.ID,
			Provider:     provider,
			CreatedAt:    time.Now().UTC(),
			LoginHistory: []profiles.LoginEvent{},
			IsNewUser:    isNew,
		}
		if err := c.adapter.SetProfile(ctx, id.ID, p); err != nil {
			logger.ErrorErr(err, "failed to create profile after sign-in", "user_id", id.ID)
			return
		}
	}

	c.adapter.TrackLoginDevice(ctx, id.ID, meta.UserAgent, meta.IP)
}

// signs out and clears the session
func (c *Context) Logout(ctx context.Context) bool {
	c.begin()
	return c.finish(c.adapter.SignOut(ctx))
}

// updates display name and photo on the signed-in identity
func (c *Context) UpdateUserProfile(ctx context.Context, upd backend.ProfileUpdate) bool {
	c.begin()

	id, err := c.requireCurrent()
	if err != nil {
		return c.finish(err)
	}

	_, err = c.adapter.UpdateProfile(ctx, id.ID, upd)
	return c.finish(err)
}

// changes the signed-in identity's email; the new address starts
// unverified
func (c *Context) UpdateUserEmail(ctx context.Context, newEmail string) bool {
	c.begin()

	id, err := c.requireCurrent()
	if err != nil {
		return c.finish(err)
	}

	_, err = c.adapter.UpdateEmail(ctx, id.ID, newEmail)
	return c.finish(err)
}

// changes the signed-in identity's password
func (c *Context) UpdateUserPassword(ctx context.Context, newPassword string) bool {
	c.begin()

	id, err := c.requireCurrent()
	if err != nil {
		return c.finish(err)
	}

	return c.finish(c.adapter.UpdatePassword(ctx, id.ID, newPassword))
}

// starts a password reset for the given address; no session required
func (c *Context) ResetPassword(ctx context.Context, email string) bool {
	c.begin()
	return c.finish(c.adapter.SendPasswordReset(ctx, email))
}

// marks the account's email verified; called from the mailed link, so
// no signed-in session is required
func (c *Context) ConfirmEmail(ctx context.Context, userID string) bool {
	c.begin()
	_, err := c.adapter.ConfirmEmail(ctx, userID)
	return c.finish(err)
}

// completes a password reset begun by ResetPassword; called from the
// mailed link, so no signed-in session is required
func (c *Context) ConfirmPasswordReset(ctx context.Context, userID, newPassword string) bool {
	c.begin()
	return c.finish(c.adapter.UpdatePassword(ctx, userID, newPassword))
}

// re-sends the verification mail for the signed-in identity
func (c *Context) VerifyEmail(ctx context.Context) bool {
	c.begin()

	id, err := c.requireCurrent()
	if err != nil {
		return c.finish(err)
	}

	_, err = c.adapter.SendEmailVerification(ctx, id.ID)
	return c.finish(err)
}

// reports whether username is free to claim
func (c *Context) CheckUsername(ctx context.Context, username string) (bool, error) {
	taken, err := c.adapter.UsernameTaken(ctx, username)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// claims username for the signed-in identity's extended profile
func (c *Context) ClaimUsername(ctx context.Context, username string) bool {
	c.begin()

	id, err := c.requireCurrent()
	if err != nil {
		return c.finish(err)
	}

	taken, err := c.adapter.UsernameTaken(ctx, username)
	if err != nil {
		return c.finish(err)
	}
	if taken {
		return c.finish(errors.E(errors.KindOther, "username is already taken"))
	}

	return c.finish(c.adapter.UpdateProfileDoc(ctx, id.ID, profiles.Update{Username: &username}))
}

// returns the signed-in identity's recorded login history, most recent
// last. An absent profile means no recorded logins, not a failure.
func (c *Context) LoginActivity(ctx context.Context) ([]profiles.LoginEvent, error) {
	id, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}

	p, err := c.adapter.GetProfile(ctx, id.ID)
	if err != nil {
		if errors.KindOf(err) == errors.KindNotFound {
			return []profiles.LoginEvent{}, nil
		}
		return nil, err
	}

	return p.LoginHistory, nil
}

// returns the signed-in identity's extended profile
func (c *Context) Profile(ctx context.Context) (*profiles.Profile, error) {
	id, err := c.requireCurrent()
	if err != nil {
		return nil, err
	}

	return c.adapter.GetProfile(ctx, id.ID)
}

// confirms the session holder still controls the account.
// TODO(nexus): verify the supplied password against the backend once
// sensitive operations require a fresh credential.
func (c *Context) Reauthenticate(_ context.Context, _ string) bool {
	_, err := c.requireCurrent()
	return err == nil
}

// persists the remember-me preference for this client
func (c *Context) SetRememberMe(remember bool) {
	c.adapter.SetRememberMe(remember)
}

func (c *Context) RememberMe() bool {
	return c.adapter.RememberMe()
}

// exposes the active backend mode
func (c *Context) Mode() backend.Mode {
	return c.adapter.Mode()
}
