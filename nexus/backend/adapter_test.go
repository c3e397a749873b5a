package backend_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/credstore"
	"codeberg.org/nexusdigital/identity/nexus/geoip"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

// fakeLive scripts the live backend's failure mode
type fakeLive struct {
	err   error
	calls int
}

func (f *fakeLive) auth() (*backend.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Identity{ID: "live-1", Email: "ada@example.com"}, nil
}

func (f *fakeLive) CreateAccount(context.Context, string, string) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) Authenticate(context.Context, string, string) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) SocialSignIn(context.Context, backend.SocialIdentity) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) SignOut(context.Context, string) error {
	f.calls++
	return f.err
}

func (f *fakeLive) UpdateProfile(context.Context, string, backend.ProfileUpdate) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) UpdateEmail(context.Context, string, string) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) UpdatePassword(context.Context, string, string) error {
	f.calls++
	return f.err
}

func (f *fakeLive) SendEmailVerification(context.Context, string) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) ConfirmEmail(context.Context, string) (*backend.Identity, error) {
	return f.auth()
}

func (f *fakeLive) SendPasswordReset(context.Context, string) error {
	f.calls++
	return f.err
}

// fakeProfiles scripts the live profile store's failure mode
type fakeProfiles struct {
	err error
}

func (f *fakeProfiles) Get(context.Context, string) (*profiles.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &profiles.Profile{UserID: "live-1"}, nil
}

func (f *fakeProfiles) Set(context.Context, string, *profiles.Profile) error  { return f.err }
func (f *fakeProfiles) Update(context.Context, string, profiles.Update) error { return f.err }
func (f *fakeProfiles) UsernameTaken(context.Context, string) (bool, error)   { return false, f.err }
func (f *fakeProfiles) AppendLoginEvent(context.Context, string, profiles.LoginEvent) error {
	return f.err
}

func openStore(t *testing.T) *credstore.Store {
	t.Helper()

	s, err := credstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func newAdapter(t *testing.T, live backend.AuthBackend, liveProfiles profiles.Store) (*backend.Adapter, *backend.Latch, *credstore.Store) {
	t.Helper()

	store := openStore(t)
	latch := backend.NewLatch()
	geo := geoip.New("http://127.0.0.1:1")

	a := backend.NewAdapter(live, liveProfiles, store, latch, geo)
	t.Cleanup(a.Close)

	return a, latch, store
}

func TestAdapter_NilLiveLatchesImmediately(t *testing.T) {
	a, latch, _ := newAdapter(t, nil, nil)

	assert.True(t, latch.Latched())
	assert.Equal(t, backend.ModeFallbackLatched, a.Mode())

	// every call lands in the credential store
	id, err := a.CreateAccount(context.Background(), "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "live-1", id.ID)
}

func TestAdapter_HealthyLiveStaysLive(t *testing.T) {
	live := &fakeLive{}
	a, latch, store := newAdapter(t, live, &fakeProfiles{})

	id, err := a.Authenticate(context.Background(), "ada@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, "live-1", id.ID)
	assert.False(t, latch.Latched())
	assert.Nil(t, store.Current(), "the store must not be touched while live")
}

func TestAdapter_ConfigurationFailureTripsAndRetriesOnce(t *testing.T) {
	live := &fakeLive{err: errors.E(errors.KindConfigurationMissing, "backend unprovisioned")}
	a, latch, store := newAdapter(t, live, &fakeProfiles{})

	id, err := a.CreateAccount(context.Background(), "ada@example.com", "correct horse battery")

	require.NoError(t, err, "the retry against the store must succeed")
	assert.True(t, latch.Latched())
	assert.Equal(t, 1, live.calls, "exactly one live attempt before latching")

	current := store.Current()
	require.NotNil(t, current)
	assert.Equal(t, id.ID, current.ID)

	// subsequent calls never touch the live backend again
	_, err = a.Authenticate(context.Background(), "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, 1, live.calls)
}

func TestAdapter_OtherFailuresPropagate(t *testing.T) {
	live := &fakeLive{err: errors.E(errors.KindInvalidCredentials, "invalid email or password")}
	a, latch, _ := newAdapter(t, live, &fakeProfiles{})

	_, err := a.Authenticate(context.Background(), "ada@example.com", "wrong")

	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidCredentials, errors.KindOf(err))
	assert.False(t, latch.Latched(), "only configuration failures trip the latch")
}

func TestAdapter_ProfileConfigurationFailureTrips(t *testing.T) {
	live := &fakeLive{}
	liveProfiles := &fakeProfiles{err: errors.E(errors.KindConfigurationMissing, "profiles table missing")}
	a, latch, _ := newAdapter(t, live, liveProfiles)

	// sign in while live so the store has an account to retry against
	id, err := a.CreateAccount(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	require.False(t, latch.Latched())

	_, err = a.GetProfile(context.Background(), id.ID)

	// the retry lands in the store, which has no profile for a live id
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.True(t, latch.Latched())
}

func TestAdapter_SubscribeImmediateAndOnSignIn(t *testing.T) {
	a, _, _ := newAdapter(t, nil, nil)

	got := make(chan *backend.Identity, 4)
	unsubscribe := a.Subscribe(func(id *backend.Identity) {
		got <- id
	})
	defer unsubscribe()

	first := <-got
	assert.Nil(t, first, "immediate invocation before any sign-in")

	_, err := a.CreateAccount(context.Background(), "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	select {
	case id := <-got:
		require.NotNil(t, id)
		assert.Equal(t, "ada@example.com", id.Email)
	case <-time.After(time.Second):
		t.Fatal("expected notification after sign-in")
	}
}

func TestAdapter_SignOutClearsCurrent(t *testing.T) {
	a, _, _ := newAdapter(t, nil, nil)
	ctx := context.Background()

	_, err := a.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NotNil(t, a.Current())

	require.NoError(t, a.SignOut(ctx))

	assert.Nil(t, a.Current())
}

func TestAdapter_TrackLoginDevice(t *testing.T) {
	a, _, store := newAdapter(t, nil, nil)
	ctx := context.Background()

	id, err := a.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	ok := a.TrackLoginDevice(ctx, id.ID, ua, "203.0.113.7")

	require.True(t, ok)

	p, err := store.Get(ctx, id.ID)
	require.NoError(t, err)
	require.Len(t, p.LoginHistory, 1)

	ev := p.LoginHistory[0]
	assert.Equal(t, "Windows", ev.Device)
	assert.Equal(t, "Chrome 120.0", ev.Browser)
	// the geo lookup cannot succeed here, so the caller-supplied
	// address is recorded and the location stays unknown
	assert.Equal(t, "203.0.113.7", ev.IP)
	assert.Equal(t, "Unknown, Unknown, Unknown", ev.Location)
}

func TestAdapter_TrackLoginDeviceUnknownUser(t *testing.T) {
	a, _, _ := newAdapter(t, nil, nil)

	ok := a.TrackLoginDevice(context.Background(), "no-such-id", "", "")

	assert.False(t, ok, "enrichment failures report false, never an error")
}

func TestAdapter_RememberMeDelegatesToStore(t *testing.T) {
	live := &fakeLive{}
	a, _, store := newAdapter(t, live, &fakeProfiles{})

	a.SetRememberMe(true)

	assert.True(t, store.RememberMe(), "the preference lives in durable local storage in either mode")
	assert.True(t, a.RememberMe())
}
