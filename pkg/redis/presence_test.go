package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*PresenceStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPresenceStore(client), mr
}

func TestSetUserPresenceOnlineOffline(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetUserPresence(ctx, 7, "alice", true))

	p, err := store.GetUserPresence(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "online", p.Status)
	assert.True(t, p.Connected)
	assert.Equal(t, "alice", p.Username)

	ids, err := store.GetOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, ids)

	require.NoError(t, store.SetUserPresence(ctx, 7, "alice", false))
	p, err = store.GetUserPresence(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "offline", p.Status)

	ids, err = store.GetOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRefreshUserPresence(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, store.RefreshUserPresence(ctx, 1), "unknown user cannot be refreshed")

	require.NoError(t, store.SetUserPresence(ctx, 1, "bob", true))
	mr.FastForward(PresenceTTL / 2)
	require.NoError(t, store.RefreshUserPresence(ctx, 1))
	assert.Equal(t, PresenceTTL, mr.TTL(presenceKey(1)))
}

func TestCleanExpiredPresence(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetUserPresence(ctx, 1, "a", true))
	require.NoError(t, store.SetUserPresence(ctx, 2, "b", true))

	mr.FastForward(PresenceTTL + 1)
	require.NoError(t, store.SetUserPresence(ctx, 2, "b", true))

	removed, err := store.CleanExpiredPresence(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ids, err := store.GetOnlineUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids)
}
