package credstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/nexusdigital/identity/internal/errors"
	"codeberg.org/nexusdigital/identity/nexus/backend"
	"codeberg.org/nexusdigital/identity/nexus/profiles"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func TestCreateAccount_SignsIn(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")

	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.Equal(t, "ada@example.com", id.Email)
	assert.False(t, id.EmailVerified)

	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, id.ID, current.ID)
}

func TestCreateAccount_DuplicateEmail(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "ada@example.com", "password-one")
	require.NoError(t, err)

	_, err = s.CreateAccount(ctx, "ada@example.com", "password-two")

	require.Error(t, err)
	assert.Equal(t, errors.KindDuplicateEmail, errors.KindOf(err))
}

func TestAuthenticate_Success(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	created, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx, created.ID))

	id, err := s.Authenticate(ctx, "ada@example.com", "correct horse battery")

	require.NoError(t, err)
	assert.Equal(t, created.ID, id.ID)

	// a successful login records a last-login event
	p, err := s.Get(ctx, id.ID)
	require.NoError(t, err)
	require.NotNil(t, p.LastLogin)
	assert.Equal(t, "Local Fallback", p.LastLogin.Location)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "ada@example.com", "wrong")

	require.Error(t, err)
	assert.Equal(t, errors.KindInvalidCredentials, errors.KindOf(err))
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	s := openStore(t)

	_, err := s.Authenticate(context.Background(), "nobody@example.com", "whatever")

	require.Error(t, err)
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
	assert.Equal(t, "no account found for that email", errors.Display(err))
}

func TestAuthenticate_EmailIsCaseSensitive(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "Ada@Example.com", "correct horse battery")

	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestSignOut_ClearsSession(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, id.ID))

	assert.Nil(t, s.Current())
}

func TestSendEmailVerification_MarksVerifiedInstantly(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.False(t, id.EmailVerified)

	verified, err := s.SendEmailVerification(ctx, id.ID)

	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	// idempotent
	again, err := s.SendEmailVerification(ctx, id.ID)
	require.NoError(t, err)
	assert.True(t, again.EmailVerified)
}

func TestUpdateEmail_ResetsVerification(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	_, err = s.SendEmailVerification(ctx, id.ID)
	require.NoError(t, err)

	updated, err := s.UpdateEmail(ctx, id.ID, "lovelace@example.com")

	require.NoError(t, err)
	assert.Equal(t, "lovelace@example.com", updated.Email)
	assert.False(t, updated.EmailVerified, "a changed address starts unverified")
}

func TestUpdateEmail_DuplicateRejected(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "ada@example.com", "password-one")
	require.NoError(t, err)

	other, err := s.CreateAccount(ctx, "grace@example.com", "password-two")
	require.NoError(t, err)

	_, err = s.UpdateEmail(ctx, other.ID, "ada@example.com")

	assert.Equal(t, errors.KindDuplicateEmail, errors.KindOf(err))
}

func TestUpdatePassword_OldPasswordStopsWorking(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "old password")
	require.NoError(t, err)

	require.NoError(t, s.UpdatePassword(ctx, id.ID, "new password"))

	_, err = s.Authenticate(ctx, "ada@example.com", "old password")
	assert.Equal(t, errors.KindInvalidCredentials, errors.KindOf(err))

	_, err = s.Authenticate(ctx, "ada@example.com", "new password")
	assert.NoError(t, err)
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	require.NoError(t, err)

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	s.Close()

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	// the session pointer and the account both survive the restart
	current := reopened.Current()
	require.NotNil(t, current)
	assert.Equal(t, id.ID, current.ID)

	_, err = reopened.Authenticate(ctx, "ada@example.com", "correct horse battery")
	assert.NoError(t, err)
}

func TestSubscribe_ImmediateInvocation(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	got := make(chan *backend.Identity, 1)
	unsubscribe := s.Subscribe(func(current *backend.Identity) {
		select {
		case got <- current:
		default:
		}
	})
	defer unsubscribe()

	select {
	case current := <-got:
		require.NotNil(t, current)
		assert.Equal(t, id.ID, current.ID)
	case <-time.After(time.Second):
		t.Fatal("expected immediate callback with current identity")
	}
}

func TestSubscribe_NotifiedOnSignOut(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	got := make(chan *backend.Identity, 4)
	unsubscribe := s.Subscribe(func(current *backend.Identity) {
		got <- current
	})
	defer unsubscribe()

	<-got // immediate invocation

	require.NoError(t, s.SignOut(ctx, ""))

	select {
	case current := <-got:
		assert.Nil(t, current, "sign-out must notify with nil identity")
	case <-time.After(time.Second):
		t.Fatal("expected notification on sign-out")
	}
}

func TestSocialSignIn_MatchesByProviderID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	social := backend.SocialIdentity{
		Provider:      "github",
		ProviderID:    "gh-1234",
		Email:         "ada@example.com",
		Name:          "Ada Lovelace",
		EmailVerified: true,
	}

	first, err := s.SocialSignIn(ctx, social)
	require.NoError(t, err)

	second, err := s.SocialSignIn(ctx, social)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "repeat social sign-in must reuse the account")
}

func TestProfileStore_UsernameTaken(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	username := "ada"
	require.NoError(t, s.Update(ctx, id.ID, profiles.Update{Username: &username}))

	taken, err := s.UsernameTaken(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, taken)

	// exact match only
	taken, err = s.UsernameTaken(ctx, "Ada")
	require.NoError(t, err)
	assert.False(t, taken)

	// the empty username is never taken
	taken, err = s.UsernameTaken(ctx, "")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestProfileStore_AppendLoginEventDeduplicates(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	id, err := s.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	ev := profiles.LoginEvent{
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Device:    "Windows",
		Browser:   "Chrome 120.0",
		IP:        "203.0.113.7",
		Location:  "Berlin, Berlin, Germany",
	}

	require.NoError(t, s.AppendLoginEvent(ctx, id.ID, ev))
	require.NoError(t, s.AppendLoginEvent(ctx, id.ID, ev))

	p, err := s.Get(ctx, id.ID)
	require.NoError(t, err)
	assert.Len(t, p.LoginHistory, 1, "identical events must not duplicate")
	require.NotNil(t, p.LastLogin)
	assert.True(t, p.LastLogin.Equal(ev))

	later := ev
	later.Timestamp = ev.Timestamp.Add(time.Hour)
	require.NoError(t, s.AppendLoginEvent(ctx, id.ID, later))

	p, err = s.Get(ctx, id.ID)
	require.NoError(t, err)
	assert.Len(t, p.LoginHistory, 2)
}

func TestProfileStore_GetUnknownUser(t *testing.T) {
	s := openStore(t)

	_, err := s.Get(context.Background(), "no-such-id")

	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))
}

func TestRememberMe_Persisted(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)

	assert.False(t, s.RememberMe(), "defaults to false")

	s.SetRememberMe(true)
	assert.True(t, s.RememberMe())
	s.Close()

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.RememberMe())
}
