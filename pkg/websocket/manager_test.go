package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(m *Manager, userID uint, buffer int) *Client {
	c := NewClient(nil, userID, "user", buffer)
	m.Register(c)
	return c
}

// drain 非阻塞读取当前队列中的全部事件
func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case payload, ok := <-c.Outbox():
			if !ok {
				return out
			}
			var e Event
			require.NoError(t, json.Unmarshal(payload, &e))
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestRegisterJoinsUserRoom(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, 1, 0)
	b := newTestClient(m, 1, 0)

	assert.True(t, m.InRoom(a, UserRoom(1)))
	assert.Equal(t, 2, m.RoomSize(UserRoom(1)))
	assert.Equal(t, 2, m.SessionCount(1))
	assert.Equal(t, []uint{1}, m.OnlineUserIDs())

	m.Broadcast(UserRoom(1), Event{Type: "bookmark_added"})
	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)
}

func TestJoinLeave(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, 1, 0)
	b := newTestClient(m, 2, 0)
	room := ChannelRoom(7)

	assert.Equal(t, "channel:7", room)
	assert.True(t, m.Join(a, room))
	assert.False(t, m.Join(a, room), "second join is a no-op")
	assert.True(t, m.Join(b, room))

	m.Broadcast(room, Event{Type: "message", Data: "hi"})
	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)

	m.Leave(b, room)
	assert.False(t, m.InRoom(b, room))
	m.Broadcast(room, Event{Type: "message"})
	assert.Len(t, drain(t, a), 1)
	assert.Empty(t, drain(t, b))

	m.Leave(a, room)
	assert.Equal(t, 0, m.RoomSize(room))
}

func TestJoinRequiresRegistration(t *testing.T) {
	m := NewManager()
	c := NewClient(nil, 1, "ghost", 0)
	assert.False(t, m.Join(c, ChannelRoom(1)))
	assert.Equal(t, 0, m.RoomSize(ChannelRoom(1)))
}

func TestSendToAndGlobal(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, 1, 0)
	b := newTestClient(m, 2, 0)

	m.SendTo(a, Event{Type: "current_user"})
	assert.Len(t, drain(t, a), 1)
	assert.Empty(t, drain(t, b))

	m.BroadcastGlobal(Event{Type: "channel_created"})
	assert.Len(t, drain(t, a), 1)
	assert.Len(t, drain(t, b), 1)

	// 空房间不消耗序号
	m.Broadcast(ChannelRoom(99), Event{Type: "message"})
	m.SendTo(a, Event{Type: "x"})
	events := drain(t, a)
	require.Len(t, events, 1)
	assert.Equal(t, int64(3), events[0].Seq)
}

func TestSeqMonotonicPerClient(t *testing.T) {
	m := NewManager()
	room := ChannelRoom(1)
	c := newTestClient(m, 1, 1024)
	m.Join(c, room)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Broadcast(room, Event{Type: "message"})
			}
		}()
	}
	wg.Wait()

	events := drain(t, c)
	require.Len(t, events, 400)
	for i := 1; i < len(events); i++ {
		assert.Greater(t, events[i].Seq, events[i-1].Seq)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	m := NewManager()
	slow := newTestClient(m, 1, 1)
	fast := newTestClient(m, 2, 16)

	m.BroadcastGlobal(Event{Type: "a"})
	m.BroadcastGlobal(Event{Type: "b"})

	assert.Equal(t, 0, m.SessionCount(1))
	assert.Len(t, drain(t, fast), 2)

	events := drain(t, slow)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].Type)
	_, open := <-slow.Outbox()
	assert.False(t, open)
}

func TestUnregister(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, 1, 0)
	b := newTestClient(m, 1, 0)
	m.Join(a, ChannelRoom(1))

	assert.Equal(t, 1, m.Unregister(a))
	assert.Equal(t, 1, m.Unregister(a), "repeat is a no-op")
	assert.Equal(t, 0, m.RoomSize(ChannelRoom(1)))
	assert.Equal(t, 0, m.Unregister(b))
	assert.Empty(t, m.OnlineUserIDs())

	m.SendTo(a, Event{Type: "late"})
	assert.Empty(t, drain(t, a))
}

func TestShutdownClosesAll(t *testing.T) {
	m := NewManager()
	a := newTestClient(m, 1, 0)
	b := newTestClient(m, 2, 0)

	m.Shutdown()

	for _, c := range []*Client{a, b} {
		_, open := <-c.Outbox()
		assert.False(t, open)
	}
	assert.Empty(t, m.OnlineUserIDs())
}
