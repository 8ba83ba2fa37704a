package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultSendBuffer   = 32
	defaultPingInterval = 30 * time.Second
)

var (
	// ErrClientClosed is returned when sending to a closed connection.
	ErrClientClosed = errors.New("connection closed")
	// ErrSendQueueFull is returned when a slow consumer cannot accept more events.
	ErrSendQueueFull = errors.New("connection send queue full")
	// ErrInvalidTransition is returned when a lifecycle step is taken out of order.
	ErrInvalidTransition = errors.New("invalid connection state transition")
)

// ConnState is the lifecycle state of a connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateAuthenticated
	StateActive
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Socket is the subset of a websocket connection a Client needs.
type Socket interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ClientOptions tunes a Client.
type ClientOptions struct {
	SendBuffer   int
	PingInterval time.Duration
	Logger       zerolog.Logger
}

// Client is the Handle implementation backed by a websocket connection. It owns
// one FIFO send queue and the per-conversation typing timers.
type Client struct {
	id           string
	userID       UserID
	connectedAt  time.Time
	socket       Socket
	send         chan Event
	closed       chan struct{}
	once         sync.Once
	state        atomic.Int32
	pingInterval time.Duration
	logger       zerolog.Logger

	mu     sync.Mutex
	typing map[uint]*time.Timer
	ended  bool
}

// NewClient wraps socket in a client in the Connecting state.
func NewClient(socket Socket, opts ClientOptions) *Client {
	buffer := opts.SendBuffer
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	ping := opts.PingInterval
	if ping <= 0 {
		ping = defaultPingInterval
	}

	client := &Client{
		id:           uuid.NewString(),
		socket:       socket,
		send:         make(chan Event, buffer),
		closed:       make(chan struct{}),
		pingInterval: ping,
		typing:       make(map[uint]*time.Timer),
	}
	client.logger = opts.Logger.With().Str("connection_id", client.id).Logger()
	client.state.Store(int32(StateConnecting))
	return client
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() UserID { return c.userID }

func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// State returns the current lifecycle state.
func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

// Authenticate binds the resolved identity. Only valid while Connecting.
func (c *Client) Authenticate(userID UserID) error {
	if userID == 0 {
		return ErrInvalidTransition
	}
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthenticated)) {
		return ErrInvalidTransition
	}
	c.userID = userID
	c.logger = c.logger.With().Str("user_id", userID.String()).Logger()
	return nil
}

// Activate marks the client as registered and live.
func (c *Client) Activate() error {
	if !c.state.CompareAndSwap(int32(StateAuthenticated), int32(StateActive)) {
		return ErrInvalidTransition
	}
	c.connectedAt = time.Now().UTC()
	return nil
}

// Send enqueues event without blocking.
func (c *Client) Send(event Event) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}

	select {
	case c.send <- event:
		return nil
	case <-c.closed:
		return ErrClientClosed
	default:
		return ErrSendQueueFull
	}
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} { return c.closed }

// ReadJSON reads the next inbound frame.
func (c *Client) ReadJSON(v interface{}) error {
	return c.socket.ReadJSON(v)
}

// WritePump drains the send queue until the client closes.
func (c *Client) WritePump() {
	defer c.Close()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.socket.WriteJSON(event); err != nil {
				c.logger.Debug().Err(err).Msg("socket write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.socket.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.logger.Debug().Err(err).Msg("socket ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

// StartTyping (re)schedules the typing-stop callback for a conversation. Any
// pending timer for the same conversation is cancelled first.
func (c *Client) StartTyping(conversationID uint, quiet time.Duration, onStop func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ended {
		return false
	}
	if existing, ok := c.typing[conversationID]; ok {
		existing.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(quiet, func() {
		c.mu.Lock()
		current, ok := c.typing[conversationID]
		if c.ended || !ok || current != timer {
			c.mu.Unlock()
			return
		}
		delete(c.typing, conversationID)
		c.mu.Unlock()

		// onStop may publish to the bus; run it outside the lock.
		onStop()
	})
	c.typing[conversationID] = timer
	return true
}

// StopTyping cancels a pending typing timer without running its callback.
func (c *Client) StopTyping(conversationID uint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer, ok := c.typing[conversationID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(c.typing, conversationID)
	return true
}

// PendingTyping returns the number of scheduled typing timers.
func (c *Client) PendingTyping() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.typing)
}

// Close moves the client to Closed, cancels its timers and closes the socket.
func (c *Client) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.ended = true
		for conversationID, timer := range c.typing {
			timer.Stop()
			delete(c.typing, conversationID)
		}
		c.mu.Unlock()

		c.state.Store(int32(StateClosed))
		close(c.closed)
		_ = c.socket.Close()
	})
}
