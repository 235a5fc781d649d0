package core

import (
	"sync"
	"time"
)

// ConnState is the lifecycle state of a connection.
type ConnState int

const (
	ConnUnbound ConnState = iota
	ConnBound
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnUnbound:
		return "unbound"
	case ConnBound:
		return "bound"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one live client channel as seen by the core layer.
// The transport drains Events and writes them to the socket.
type Conn struct {
	ID        string
	CreatedAt time.Time
	Events    chan *Event

	// lifeMu serializes Bind and Close for this connection.
	lifeMu sync.Mutex

	mu     sync.Mutex
	state  ConnState
	userID string
}

// NewConn constructs an unbound connection with a buffered event channel.
func NewConn(id string, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 8
	}
	return &Conn{
		ID:        id,
		CreatedAt: time.Now(),
		Events:    make(chan *Event, buffer),
	}
}

// UserID returns the bound user, or "" while unbound.
func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// State returns the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send enqueues an event without blocking. It reports false when the
// connection is closed or its buffer is full (slow consumer).
func (c *Conn) Send(ev *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ConnClosed {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

func (c *Conn) markBound(userID string) {
	c.mu.Lock()
	c.state = ConnBound
	c.userID = userID
	c.mu.Unlock()
}

// markClosed moves the connection to Closed and closes Events.
// It reports false if the connection was already closed.
func (c *Conn) markClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ConnClosed {
		return false
	}
	c.state = ConnClosed
	close(c.Events)
	return true
}
