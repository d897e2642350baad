package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"teamflow/config"
	"teamflow/internal/dbtest"
	"teamflow/internal/model"
	"teamflow/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	mu        sync.Mutex
	online    map[uint]bool
	refreshed int
	expired   bool
}

func (m *fakeMirror) SetUserPresence(_ context.Context, userID uint, _ string, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == nil {
		m.online = make(map[uint]bool)
	}
	m.online[userID] = online
	m.expired = false
	return nil
}

func (m *fakeMirror) RefreshUserPresence(_ context.Context, _ uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired {
		return errors.New("key expired")
	}
	m.refreshed++
	return nil
}

func TestPresenceConnectDisconnect(t *testing.T) {
	gdb := dbtest.New(t)
	hub := &recordingHub{}
	mirror := &fakeMirror{}
	svc := NewPresenceService(gdb, hub, mirror, false)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	alice := dbtest.CreateUser(t, gdb, "alice")
	ctx := context.Background()

	require.NoError(t, svc.Connected(ctx, alice.ID, "alice"))
	var u model.User
	require.NoError(t, gdb.First(&u, alice.ID).Error)
	assert.True(t, u.IsOnline)
	assert.True(t, mirror.online[alice.ID])

	// 关闭多会话跟踪时，任意连接断开即离线
	require.NoError(t, svc.Disconnected(ctx, alice.ID, "alice", 1))
	require.NoError(t, gdb.First(&u, alice.ID).Error)
	assert.False(t, u.IsOnline)
	require.NotNil(t, u.LastSeen)
	assert.True(t, fixed.Equal(u.LastSeen.UTC()))
	assert.False(t, mirror.online[alice.ID])

	changes := hub.ofType(EventStatusChange)
	require.Len(t, changes, 2)
	assert.Equal(t, globalRoom, changes[1].Room)
	assert.Equal(t, map[string]interface{}{"user_id": alice.ID, "status": "offline"}, changes[1].Event.Data)

	users := NewUserService(gdb, jwt.NewJWTService(config.JWTConfig{Secret: "x"}), hub)
	status, err := users.Status(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, status.IsOnline)
	require.NotNil(t, status.LastSeen)
	assert.Equal(t, "2024-05-01T12:00:00Z", *status.LastSeen)
}

func TestPresenceTrackSessions(t *testing.T) {
	gdb := dbtest.New(t)
	hub := &recordingHub{}
	svc := NewPresenceService(gdb, hub, nil, true)
	alice := dbtest.CreateUser(t, gdb, "alice")
	ctx := context.Background()

	require.NoError(t, svc.Connected(ctx, alice.ID, "alice"))
	require.NoError(t, svc.Disconnected(ctx, alice.ID, "alice", 1))

	var u model.User
	require.NoError(t, gdb.First(&u, alice.ID).Error)
	assert.True(t, u.IsOnline)

	require.NoError(t, svc.Disconnected(ctx, alice.ID, "alice", 0))
	require.NoError(t, gdb.First(&u, alice.ID).Error)
	assert.False(t, u.IsOnline)
	assert.Len(t, hub.ofType(EventStatusChange), 2)
}

func TestPresenceHeartbeat(t *testing.T) {
	gdb := dbtest.New(t)
	mirror := &fakeMirror{}
	svc := NewPresenceService(gdb, &recordingHub{}, mirror, false)
	ctx := context.Background()

	svc.Heartbeat(ctx, 1, "alice")
	assert.Equal(t, 1, mirror.refreshed)

	mirror.expired = true
	svc.Heartbeat(ctx, 1, "alice")
	assert.True(t, mirror.online[1])

	NewPresenceService(gdb, &recordingHub{}, nil, false).Heartbeat(ctx, 1, "alice")
}
