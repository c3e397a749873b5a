package backend

import (
	"context"
	"sync"
	"time"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/internal/logger"
	"codeberg.org/nexusdigital/identity/nexus/device"
	"codeberg.org/nexusdigital/identity/nexus/geoip"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

// FallbackStore is what the adapter needs from the local credential
// store: the full backend surface plus durable session-pointer and
// preference handling.
type FallbackStore interface {
	AuthBackend
	profiles.Store
	Current() *Identity
	Subscribe(cb func(*Identity)) func()
	SetRememberMe(remember bool)
	RememberMe() bool
}

// Adapter presents one uniform surface over the live identity backend
// and the fallback credential store. Every operation checks the shared
// latch first; a ConfigurationMissing failure from the live backend
// trips the latch permanently and the call is retried against the
// store exactly once. All other failures propagate unchanged.
type Adapter struct {
	live         AuthBackend
	liveProfiles profiles.Store
	store        FallbackStore
	latch        *Latch
	geo          *geoip.Client

	mu         sync.Mutex
	current    *Identity
	observers  map[int]func(*Identity)
	nextObsID  int
	storeUnsub func()
}

// creates an adapter. live and liveProfiles may be nil when the real
// backend is unconfigured, in which case the latch trips immediately.
func NewAdapter(live AuthBackend, liveProfiles profiles.Store, store FallbackStore, latch *Latch, geo *geoip.Client) *Adapter {
	a := &Adapter{
		live:         live,
		liveProfiles: liveProfiles,
		store:        store,
		latch:        latch,
		geo:          geo,
		observers:    make(map[int]func(*Identity)),
	}

	if live == nil || liveProfiles == nil {
		if latch.Trip() {
			logger.Warn("identity backend unconfigured, using local credential store")
		}
	}

	// adopt the store's durable session while the fallback is active;
	// this also recovers a persisted session at startup
	a.storeUnsub = store.Subscribe(func(id *Identity) {
		if a.latch.Latched() {
			a.setCurrent(id)
		}
	})

	return a
}

// releases the adapter's store subscription
func (a *Adapter) Close() {
	if a.storeUnsub != nil {
		a.storeUnsub()
	}
}

// returns the active backend mode
func (a *Adapter) Mode() Mode {
	return a.latch.Mode()
}

func (a *Adapter) trip(err error) {
	if a.latch.Trip() {
		logger.ErrorErr(err, "identity backend configuration failure, latched to local credential store")
	}
}

// runs an identity-returning call with latch-and-retry semantics
func (a *Adapter) authCall(call func(b AuthBackend) (*Identity, error)) (*Identity, error) {
	if a.latch.Latched() {
		return call(a.store)
	}

	id, err := call(a.live)
	if err != nil && errors.IsConfigurationMissing(err) {
		a.trip(err)
		return call(a.store)
	}

	return id, err
}

// runs an error-only call with latch-and-retry semantics
func (a *Adapter) errCall(call func(b AuthBackend) error) error {
	if a.latch.Latched() {
		return call(a.store)
	}

	err := call(a.live)
	if err != nil && errors.IsConfigurationMissing(err) {
		a.trip(err)
		return call(a.store)
	}

	return err
}

// runs a profile-store call with latch-and-retry semantics
func (a *Adapter) profileCall(call func(p profiles.Store) error) error {
	if a.latch.Latched() {
		return call(a.store)
	}

	err := call(a.liveProfiles)
	if err != nil && errors.IsConfigurationMissing(err) {
		a.trip(err)
		return call(a.store)
	}

	return err
}

func (a *Adapter) setCurrent(id *Identity) {
	a.mu.Lock()
	a.current = copyOf(id)

	observers := make([]func(*Identity), 0, len(a.observers))
	for _, cb := range a.observers {
		observers = append(observers, cb)
	}
	a.mu.Unlock()

	for _, cb := range observers {
		cb(copyOf(id))
	}
}

// updates the current identity only if it refers to the same principal
func (a *Adapter) refreshCurrent(id *Identity) {
	a.mu.Lock()
	same := a.current != nil && id != nil && a.current.ID == id.ID
	a.mu.Unlock()

	if same {
		a.setCurrent(id)
	}
}

func copyOf(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}

// returns the current identity, recovering a persisted session from
// the store while the fallback is active
func (a *Adapter) Current() *Identity {
	a.mu.Lock()
	current := copyOf(a.current)
	a.mu.Unlock()

	if current == nil && a.latch.Latched() {
		return a.store.Current()
	}

	return current
}

// registers cb for identity changes; invoked immediately with the
// current identity, then on every change. Returns an unsubscribe handle.
func (a *Adapter) Subscribe(cb func(*Identity)) func() {
	a.mu.Lock()
	obsID := a.nextObsID
	a.nextObsID++
	a.observers[obsID] = cb
	current := copyOf(a.current)
	a.mu.Unlock()

	cb(current)

	return func() {
		a.mu.Lock()
		delete(a.observers, obsID)
		a.mu.Unlock()
	}
}

func (a *Adapter) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.CreateAccount(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}

	a.setCurrent(id)
	return id, nil
}

func (a *Adapter) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.Authenticate(ctx, email, password)
	})
	if err != nil {
		return nil, err
	}

	a.setCurrent(id)
	return id, nil
}

func (a *Adapter) SocialSignIn(ctx context.Context, social SocialIdentity) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.SocialSignIn(ctx, social)
	})
	if err != nil {
		return nil, err
	}

	a.setCurrent(id)
	return id, nil
}

func (a *Adapter) SignOut(ctx context.Context) error {
	userID := ""
	if current := a.Current(); current != nil {
		userID = current.ID
	}

	err := a.errCall(func(b AuthBackend) error {
		return b.SignOut(ctx, userID)
	})
	if err != nil {
		return err
	}

	a.setCurrent(nil)
	return nil
}

func (a *Adapter) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.UpdateProfile(ctx, userID, upd)
	})
	if err != nil {
		return nil, err
	}

	a.refreshCurrent(id)
	return id, nil
}

func (a *Adapter) UpdateEmail(ctx context.Context, userID, newEmail string) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.UpdateEmail(ctx, userID, newEmail)
	})
	if err != nil {
		return nil, err
	}

	a.refreshCurrent(id)
	return id, nil
}

func (a *Adapter) UpdatePassword(ctx context.Context, userID, newPassword string) error {
	return a.errCall(func(b AuthBackend) error {
		return b.UpdatePassword(ctx, userID, newPassword)
	})
}

func (a *Adapter) SendEmailVerification(ctx context.Context, userID string) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.SendEmailVerification(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	a.refreshCurrent(id)
	return id, nil
}

func (a *Adapter) ConfirmEmail(ctx context.Context, userID string) (*Identity, error) {
	id, err := a.authCall(func(b AuthBackend) (*Identity, error) {
		return b.ConfirmEmail(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	a.refreshCurrent(id)
	return id, nil
}

func (a *Adapter) SendPasswordReset(ctx context.Context, email string) error {
	return a.errCall(func(b AuthBackend) error {
		return b.SendPasswordReset(ctx, email)
	})
}

// the remember-me preference always lives in durable local storage,
// whichever backend is active
func (a *Adapter) SetRememberMe(remember bool) {
	a.store.SetRememberMe(remember)
}

func (a *Adapter) RememberMe() bool {
	return a.store.RememberMe()
}

func (a *Adapter) GetProfile(ctx context.Context, userID string) (*profiles.Profile, error) {
	var p *profiles.Profile

	err := a.profileCall(func(store profiles.Store) error {
		var err error
		p, err = store.Get(ctx, userID)
		return err
	})

	return p, err
}

func (a *Adapter) SetProfile(ctx context.Context, userID string, p *profiles.Profile) error {
	return a.profileCall(func(store profiles.Store) error {
		return store.Set(ctx, userID, p)
	})
}

func (a *Adapter) UpdateProfileDoc(ctx context.Context, userID string, upd profiles.Update) error {
	return a.profileCall(func(store profiles.Store) error {
		return store.Update(ctx, userID, upd)
	})
}

func (a *Adapter) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool

	err := a.profileCall(func(store profiles.Store) error {
		var err error
		taken, err = store.UsernameTaken(ctx, username)
		return err
	})

	return taken, err
}

// records one login in the extended profile's history: device and
// browser parsed from the user agent, location from the best-effort
// geo lookup. Telemetry enrichment must never fail a login, so the
// result is a bool the caller is free to ignore.
func (a *Adapter) TrackLoginDevice(ctx context.Context, userID, userAgent, ip string) bool {
	info := device.Parse(userAgent)

	loc, err := a.geo.Lookup(ctx)
	if err != nil {
		logger.Debug("geo lookup failed, using placeholders", "error", err)
	}

	eventIP := loc.IP
	if eventIP == geoip.Unknown && ip != "" {
		eventIP = ip
	}

	ev := profiles.LoginEvent{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Device:    info.Platform,
		Browser:   info.Browser,
		IP:        eventIP,
		Location:  loc.String(),
	}

	err = a.profileCall(func(store profiles.Store) error {
		return store.AppendLoginEvent(ctx, userID, ev)
	})
	if err != nil {
		logger.ErrorErr(err, "failed to record login device", "user_id", userID)
		return false
	}

	return true
}
