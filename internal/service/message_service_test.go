package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"teamflow/internal/dbtest"
	"teamflow/internal/model"
	"teamflow/pkg/keylock"
	"teamflow/pkg/ratelimit"
	"teamflow/pkg/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type memorySink struct {
	mu      sync.Mutex
	files   map[string][]byte
	removed []string
}

func newMemorySink() *memorySink {
	return &memorySink{files: make(map[string][]byte)}
}

func (s *memorySink) Save(originalName string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("%d-%s", len(s.files), originalName)
	s.files[ref] = data
	return ref, nil
}

func (s *memorySink) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	s.removed = append(s.removed, ref)
	return nil
}

type messageFixture struct {
	db      *gorm.DB
	hub     *recordingHub
	sink    *memorySink
	svc     *MessageService
	user    *model.User
	channel *model.Channel
}

func newMessageFixture(t *testing.T, limiter *ratelimit.Pool) *messageFixture {
	t.Helper()
	gdb := dbtest.New(t)
	hub := &recordingHub{}
	sink := newMemorySink()
	return &messageFixture{
		db:      gdb,
		hub:     hub,
		sink:    sink,
		svc:     NewMessageService(gdb, hub, limiter, keylock.New(), sink),
		user:    dbtest.CreateUser(t, gdb, "alice"),
		channel: dbtest.CreateChannel(t, gdb, "General"),
	}
}

func (f *messageFixture) post(t *testing.T, content string) *MessageView {
	t.Helper()
	view, err := f.svc.Post(context.Background(), PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: content})
	require.NoError(t, err)
	return view
}

func countRows(t *testing.T, gdb *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(m).Count(&n).Error)
	return n
}

func TestPostMessage(t *testing.T) {
	f := newMessageFixture(t, nil)

	view := f.post(t, "hello")

	assert.NotZero(t, view.ID)
	assert.Equal(t, f.channel.ID, view.ChannelID)
	assert.Equal(t, "alice", view.User)
	assert.False(t, view.IsPinned)
	assert.Nil(t, view.PinnedBy)
	assert.Nil(t, view.File)
	assert.Nil(t, view.ParentID)
	assert.NotNil(t, view.Reactions)
	assert.NotNil(t, view.Threads)
	assert.NotNil(t, view.Replies)

	sent := f.hub.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, websocket.ChannelRoom(f.channel.ID), sent[0].Room)
	assert.Equal(t, EventMessage, sent[0].Event.Type)
}

func TestPostMessageToMissingChannel(t *testing.T) {
	f := newMessageFixture(t, nil)

	_, err := f.svc.Post(context.Background(), PostMessageInput{ChannelID: 404, UserID: f.user.ID, Content: "hello"})

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Channel not found", PublicMessage(err))
	assert.Zero(t, countRows(t, f.db, &model.Message{}))
	assert.Empty(t, f.hub.sent())
}

func TestPostMessageValidation(t *testing.T) {
	f := newMessageFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	other := dbtest.CreateChannel(t, f.db, "random")
	parent := f.post(t, "parent")
	f.hub.reset()

	_, err = f.svc.Post(ctx, PostMessageInput{ChannelID: other.ID, UserID: f.user.ID, Content: "x", ParentID: &parent.ID})
	assert.ErrorIs(t, err, ErrValidation)

	reply, err := f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "reply", ParentID: &parent.ID})
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)

	_, err = f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "nested", ParentID: &reply.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "x", ParentID: uintPtr(999)})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, f.hub.sent(), 1)
}

func TestPostMessageWithAttachmentOnly(t *testing.T) {
	f := newMessageFixture(t, nil)

	view, err := f.svc.Post(context.Background(), PostMessageInput{
		ChannelID:  f.channel.ID,
		UserID:     f.user.ID,
		Attachment: &Attachment{Name: "a.png", Ref: "ref.png", Type: "image/png", EmbeddingStatus: model.EmbeddingSkipped},
	})
	require.NoError(t, err)
	require.NotNil(t, view.File)
	assert.Equal(t, "/uploads/ref.png", view.File.Path)
	assert.Equal(t, "skipped", view.File.EmbeddingStatus)
}

func TestPostMessageRateLimited(t *testing.T) {
	f := newMessageFixture(t, ratelimit.NewPool(0.001, 2))

	f.post(t, "one")
	f.post(t, "two")
	_, err := f.svc.Post(context.Background(), PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "three"})

	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(2), countRows(t, f.db, &model.Message{}))
}

func TestPrecheckAdmitsOnce(t *testing.T) {
	f := newMessageFixture(t, ratelimit.NewPool(0.001, 2))
	ctx := context.Background()

	missing := PostMessageInput{ChannelID: 404, UserID: f.user.ID}
	require.ErrorIs(t, f.svc.Precheck(ctx, &missing), ErrChannelNotFound)

	in := PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID}
	require.NoError(t, f.svc.Precheck(ctx, &in))
	in.Content = "with file"
	_, err := f.svc.Post(ctx, in)
	require.NoError(t, err)

	next := PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID}
	assert.ErrorIs(t, f.svc.Precheck(ctx, &next), ErrRateLimited)
}

func TestPostMessagePersistenceFailure(t *testing.T) {
	f := newMessageFixture(t, nil)
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_message", func(tx *gorm.DB) {
		if tx.Statement.Table == "message" {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	_, err := f.svc.Post(context.Background(), PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "hello"})

	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, "Failed to send message", PublicMessage(err))
	assert.Zero(t, countRows(t, f.db, &model.Message{}))
	assert.Empty(t, f.hub.ofType(EventMessage))
}

func TestHistoryOldestFirstWithReplies(t *testing.T) {
	f := newMessageFixture(t, nil)
	ctx := context.Background()

	first := f.post(t, "first")
	f.post(t, "second")
	_, err := f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: f.user.ID, Content: "reply", ParentID: &first.ID})
	require.NoError(t, err)

	history, err := f.svc.History(ctx, f.channel.ID, 100)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	require.Len(t, history[0].Replies, 1)
	assert.Equal(t, "reply", history[0].Replies[0].Content)

	limited, err := f.svc.History(ctx, f.channel.ID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "second", limited[0].Content)

	_, err = f.svc.History(ctx, 999, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTogglePin(t *testing.T) {
	f := newMessageFixture(t, nil)
	ctx := context.Background()
	msg := f.post(t, "pin me")
	bob := dbtest.CreateUser(t, f.db, "bob")

	pin, err := f.svc.TogglePin(ctx, bob.ID, msg.ID)
	require.NoError(t, err)
	assert.True(t, pin.IsPinned)
	require.NotNil(t, pin.PinnedBy)
	assert.Equal(t, "bob", *pin.PinnedBy)
	assert.NotNil(t, pin.PinnedAt)

	pinned, err := f.svc.ListPinned(ctx, f.channel.ID)
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	require.NotNil(t, pinned[0].PinnedBy)
	assert.Equal(t, "bob", *pinned[0].PinnedBy)

	unpin, err := f.svc.TogglePin(ctx, f.user.ID, msg.ID)
	require.NoError(t, err)
	assert.False(t, unpin.IsPinned)
	assert.Nil(t, unpin.PinnedBy)
	assert.Nil(t, unpin.PinnedAt)

	var stored model.Message
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.False(t, stored.IsPinned)
	assert.Nil(t, stored.PinnedAt)
	assert.Nil(t, stored.PinnedByID)

	assert.Len(t, f.hub.ofType(EventMessagePinned), 2)

	_, err = f.svc.TogglePin(ctx, f.user.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteMessageCascades(t *testing.T) {
	f := newMessageFixture(t, nil)
	ctx := context.Background()
	bob := dbtest.CreateUser(t, f.db, "bob")

	msg, err := f.svc.Post(ctx, PostMessageInput{
		ChannelID:  f.channel.ID,
		UserID:     f.user.ID,
		Content:    "with file",
		Attachment: &Attachment{Name: "a.txt", Ref: "ref-a.txt", Type: "text/plain", EmbeddingStatus: model.EmbeddingSkipped},
	})
	require.NoError(t, err)
	_, err = f.svc.Post(ctx, PostMessageInput{ChannelID: f.channel.ID, UserID: bob.ID, Content: "reply", ParentID: &msg.ID})
	require.NoError(t, err)

	threads := NewThreadService(f.db, f.hub)
	node, err := threads.Reply(ctx, ThreadReplyInput{MessageID: msg.ID, UserID: bob.ID, Content: "thread"})
	require.NoError(t, err)

	locks := keylock.New()
	reactions := NewReactionService(f.db, f.hub, locks)
	_, err = reactions.Toggle(ctx, ReactionInput{TargetID: msg.ID, Emoji: "👍", UserID: bob.ID, Username: "bob"})
	require.NoError(t, err)
	_, err = reactions.Toggle(ctx, ReactionInput{TargetID: node.ID, IsThread: true, Emoji: "🎉", UserID: bob.ID, Username: "bob"})
	require.NoError(t, err)
	_, err = NewBookmarkService(f.db, f.hub, locks).Toggle(ctx, bob.ID, msg.ID, "")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, bob.ID, msg.ID)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, int64(2), countRows(t, f.db, &model.Message{}))

	f.hub.reset()
	require.NoError(t, f.svc.Delete(ctx, f.user.ID, msg.ID))

	assert.Zero(t, countRows(t, f.db, &model.Message{}))
	assert.Zero(t, countRows(t, f.db, &model.Thread{}))
	assert.Zero(t, countRows(t, f.db, &model.Reaction{}))
	assert.Zero(t, countRows(t, f.db, &model.UserBookmark{}))
	assert.Equal(t, []string{"ref-a.txt"}, f.sink.removed)

	deleted := f.hub.ofType(EventMessageDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, websocket.ChannelRoom(f.channel.ID), deleted[0].Room)

	err = f.svc.Delete(ctx, f.user.ID, msg.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListFiles(t *testing.T) {
	f := newMessageFixture(t, nil)
	ctx := context.Background()
	f.post(t, "plain")
	_, err := f.svc.Post(ctx, PostMessageInput{
		ChannelID:  f.channel.ID,
		UserID:     f.user.ID,
		Attachment: &Attachment{Name: "a.txt", Ref: "r.txt", Type: "text/plain", EmbeddingStatus: model.EmbeddingSkipped},
	})
	require.NoError(t, err)

	files, err := f.svc.ListFiles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].File.Name)
}
