package service

import (
	"sync"

	"teamflow/pkg/websocket"
)

const globalRoom = "*"

type sentEvent struct {
	Room  string
	Event websocket.Event
}

// recordingHub 记录所有广播，代替真实 Manager
type recordingHub struct {
	mu     sync.Mutex
	events []sentEvent
}

func (h *recordingHub) Broadcast(room string, event websocket.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, sentEvent{Room: room, Event: event})
}

func (h *recordingHub) BroadcastGlobal(event websocket.Event) {
	h.Broadcast(globalRoom, event)
}

func (h *recordingHub) sent() []sentEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]sentEvent(nil), h.events...)
}

func (h *recordingHub) ofType(eventType string) []sentEvent {
	var out []sentEvent
	for _, e := range h.sent() {
		if e.Event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (h *recordingHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func uintPtr(v uint) *uint { return &v }
