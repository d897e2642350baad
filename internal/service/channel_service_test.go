package service

import (
	"context"
	"strings"
	"testing"

	"teamflow/internal/dbtest"
	"teamflow/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultIdempotent(t *testing.T) {
	gdb := dbtest.New(t)
	svc := NewChannelService(gdb, &recordingHub{})
	ctx := context.Background()

	created, err := svc.EnsureDefault(ctx, "General")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureDefault(ctx, "General")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, int64(1), countRows(t, gdb, &model.Channel{}))

	channels, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "Default channel for general discussions", channels[0].Description)
	assert.Nil(t, channels[0].CreatedBy)
}

func TestCreateChannel(t *testing.T) {
	gdb := dbtest.New(t)
	hub := &recordingHub{}
	svc := NewChannelService(gdb, hub)
	alice := dbtest.CreateUser(t, gdb, "alice")
	ctx := context.Background()

	view, err := svc.Create(ctx, alice.ID, "  random ", "off topic")
	require.NoError(t, err)
	assert.Equal(t, "random", view.Name)
	require.NotNil(t, view.CreatedBy)
	assert.Equal(t, "alice", *view.CreatedBy)

	sent := hub.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, globalRoom, sent[0].Room)
	assert.Equal(t, EventChannelCreated, sent[0].Event.Type)

	tests := []struct {
		name, channel, description string
	}{
		{"duplicate", "random", ""},
		{"empty", "   ", ""},
		{"long name", strings.Repeat("n", 65), ""},
		{"long description", "ok", strings.Repeat("d", 257)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, alice.ID, tt.channel, tt.description)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Len(t, hub.sent(), 1)
}

func TestChannelInfoCounts(t *testing.T) {
	f := newMessageFixture(t, nil)
	svc := NewChannelService(f.db, f.hub)
	ctx := context.Background()

	parent := f.post(t, "top")
	f.post(t, "another")
	_, err := f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "reply", ParentID: &parent.ID})
	require.NoError(t, err)

	info, err := svc.Info(ctx, f.channel.ID)
	require.NoError(t, err)
	assert.Equal(t, "General", info.Name)
	assert.Equal(t, int64(2), info.MessageCount)
	assert.Equal(t, int64(1), info.ReplyCount)

	_, err = svc.Info(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	summaries, err := svc.Summaries(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ChannelSummary{{ID: f.channel.ID, Name: "General"}}, summaries)
}
