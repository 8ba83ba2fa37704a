package realtime

import (
	"errors"
	"sync"
	"time"
)

type fakeHandle struct {
	id     string
	user   UserID
	mu     sync.Mutex
	events []Event
	err    error
}

func newFakeHandle(id string, user UserID) *fakeHandle {
	return &fakeHandle{id: id, user: user}
}

func (h *fakeHandle) ID() string             { return h.id }
func (h *fakeHandle) UserID() UserID         { return h.user }
func (h *fakeHandle) ConnectedAt() time.Time { return time.Time{} }

func (h *fakeHandle) Send(event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.events = append(h.events, event)
	return nil
}

func (h *fakeHandle) received() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *fakeHandle) names() []string {
	events := h.received()
	out := make([]string, 0, len(events))
	for _, event := range events {
		out = append(out, event.Event)
	}
	return out
}

type fakeSocket struct {
	mu      sync.Mutex
	written []interface{}
	closed  bool
	inbound chan interface{}
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{inbound: make(chan interface{}, 8)}
}

func (s *fakeSocket) ReadJSON(v interface{}) error {
	_, ok := <-s.inbound
	if !ok {
		return errors.New("socket closed")
	}
	return nil
}

func (s *fakeSocket) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("socket closed")
	}
	s.written = append(s.written, v)
	return nil
}

func (s *fakeSocket) WriteMessage(int, []byte) error { return nil }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
