package credstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/nexusdigital/identity/nexus/backend"
)

// two stores sharing a directory stand in for two processes sharing
// the same durable session

func TestWatch_AdoptsSignInFromAnotherStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := Open(dir)
	require.NoError(t, err)
	defer writer.Close()

	id, err := writer.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)
	require.NoError(t, writer.SignOut(ctx, id.ID))

	watcher, err := Open(dir)
	require.NoError(t, err)
	defer watcher.Close()

	got := make(chan *backend.Identity, 4)
	unsubscribe := watcher.Subscribe(func(current *backend.Identity) {
		got <- current
	})
	defer unsubscribe()

	first := <-got
	assert.Nil(t, first, "no session at subscription time")

	_, err = writer.Authenticate(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	select {
	case current := <-got:
		require.NotNil(t, current)
		assert.Equal(t, id.ID, current.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not pick up the session written by the other store")
	}
}

func TestWatch_AdoptsSignOutFromAnotherStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := Open(dir)
	require.NoError(t, err)
	defer writer.Close()

	_, err = writer.CreateAccount(ctx, "ada@example.com", "correct horse battery")
	require.NoError(t, err)

	watcher, err := Open(dir)
	require.NoError(t, err)
	defer watcher.Close()

	got := make(chan *backend.Identity, 4)
	unsubscribe := watcher.Subscribe(func(current *backend.Identity) {
		got <- current
	})
	defer unsubscribe()

	first := <-got
	require.NotNil(t, first, "session recovered from disk at open")

	require.NoError(t, writer.SignOut(ctx, ""))

	select {
	case current := <-got:
		assert.Nil(t, current, "remote sign-out must clear the session")
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not pick up the sign-out")
	}
}
