package core

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/metrics"
)

// Lifecycle owns the Unbound -> Bound -> Closed state machine of connections.
type Lifecycle struct {
	conns    *ConnSet
	registry *Registry
	typing   *TypingCoordinator
	buffer   int
	log      *zerolog.Logger
}

// NewLifecycle wires the lifecycle manager to the shared registry and typing state.
func NewLifecycle(conns *ConnSet, registry *Registry, typing *TypingCoordinator, buffer int, logger *zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		conns:    conns,
		registry: registry,
		typing:   typing,
		buffer:   buffer,
		log:      logger,
	}
}

// Open creates a new unbound connection and starts tracking it.
func (l *Lifecycle) Open() *Conn {
	c := NewConn(uuid.NewString(), l.buffer)
	l.conns.Add(c)
	metrics.ConnectionsTotal.Inc()
	l.log.Debug().Str("conn_id", c.ID).Msg("connection opened")
	return c
}

// Bind attaches a verified identity to the connection. The user's first
// connection announces it online. On success the connection receives a
// bound confirmation followed by a snapshot of online users.
func (l *Lifecycle) Bind(c *Conn, userID string) error {
	if userID == "" {
		return ErrBadRequest
	}

	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	switch c.State() {
	case ConnClosed:
		return ErrConnClosed
	case ConnBound:
		if c.UserID() == userID {
			return nil
		}
		return ErrAlreadyBound
	}

	if err := l.registry.Bind(c, userID); err != nil {
		return err
	}
	c.markBound(userID)

	c.Send(&Event{Kind: EventBound, User: userID, ConnID: c.ID})
	c.Send(&Event{Kind: EventPresenceSnapshot, Users: l.registry.OnlineUsers()})

	l.log.Info().Str("conn_id", c.ID).Str("user_id", userID).Msg("connection bound")
	return nil
}

// Close tears the connection down. Clean closes, transport errors and
// heartbeat timeouts all end up here; calling it again is a no-op.
func (l *Lifecycle) Close(c *Conn) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.State() == ConnClosed {
		return
	}

	l.conns.Remove(c.ID)
	userID, wasBound := l.registry.Unbind(c.ID)
	l.typing.CancelConn(c.ID)
	c.markClosed()
	metrics.ConnectionsTotal.Dec()

	ev := l.log.Debug().Str("conn_id", c.ID)
	if wasBound {
		ev = ev.Str("user_id", userID)
	}
	ev.Msg("connection closed")
}
