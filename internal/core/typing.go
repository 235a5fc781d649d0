package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/metrics"
)

// DefaultTypingTimeout is the idle window after which a typing state expires.
const DefaultTypingTimeout = 1500 * time.Millisecond

type typingKey struct {
	sender    string
	recipient string
}

type typingEntry struct {
	gen    uint64
	connID string
	timer  *time.Timer
}

// TypingCoordinator tracks short-lived "is typing" state per
// (sender, recipient) pair and relays transitions to the recipient only.
type TypingCoordinator struct {
	registry PresenceRegistry
	timeout  time.Duration
	log      *zerolog.Logger

	mu      sync.Mutex
	entries map[typingKey]*typingEntry
	gen     uint64
	closed  bool
}

// NewTypingCoordinator creates a coordinator with the given idle timeout.
func NewTypingCoordinator(registry PresenceRegistry, timeout time.Duration, logger *zerolog.Logger) *TypingCoordinator {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingCoordinator{
		registry: registry,
		timeout:  timeout,
		log:      logger,
		entries:  make(map[typingKey]*typingEntry),
	}
}

// Start marks the connection's user as typing to recipientID. Only the first
// start of a typing run notifies the recipient; later starts re-arm the timer.
func (t *TypingCoordinator) Start(from *Conn, recipientID string) error {
	sender := from.UserID()
	if sender == "" {
		return ErrNotBound
	}
	if recipientID == "" {
		return ErrBadRequest
	}
	key := typingKey{sender: sender, recipient: recipientID}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}

	t.gen++
	gen := t.gen
	timer := time.AfterFunc(t.timeout, func() { t.expire(key, gen) })

	if e, ok := t.entries[key]; ok {
		e.timer.Stop()
		e.gen = gen
		e.connID = from.ID
		e.timer = timer
		return nil
	}

	t.entries[key] = &typingEntry{gen: gen, connID: from.ID, timer: timer}
	t.notify(key, EventTyping)
	return nil
}

// Stop clears the typing state and notifies the recipient. It reports false
// when there was nothing to stop (never started, or already expired).
func (t *TypingCoordinator) Stop(senderID, recipientID string) bool {
	key := typingKey{sender: senderID, recipient: recipientID}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, key)
	t.notify(key, EventTypingStopped)
	return true
}

// IsTyping reports whether sender currently has an active typing state
// towards recipient.
func (t *TypingCoordinator) IsTyping(senderID, recipientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[typingKey{sender: senderID, recipient: recipientID}]
	return ok
}

// CancelConn stops every typing state last started from connID.
// Recipients get a typing_stopped so their indicator does not linger.
func (t *TypingCoordinator) CancelConn(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, e := range t.entries {
		if e.connID != connID {
			continue
		}
		e.timer.Stop()
		delete(t.entries, key)
		t.notify(key, EventTypingStopped)
	}
}

// Close stops all pending timers without notifying anyone.
func (t *TypingCoordinator) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, e := range t.entries {
		e.timer.Stop()
		delete(t.entries, key)
	}
	t.closed = true
}

func (t *TypingCoordinator) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[key]
	// A stop or a refresh won the race; this timer is stale.
	if !ok || e.gen != gen {
		return
	}
	delete(t.entries, key)
	t.notify(key, EventTypingStopped)
	t.log.Debug().Str("user_id", key.sender).Str("recipient_id", key.recipient).Msg("typing expired")
}

// notify must be called with t.mu held so start/stop reach the recipient in order.
func (t *TypingCoordinator) notify(key typingKey, kind EventKind) {
	label := "typing"
	if kind == EventTypingStopped {
		label = "stopped"
	}

	ev := &Event{Kind: kind, User: key.sender}
	sent := false
	for _, c := range t.registry.Handles(key.recipient) {
		if c.Send(ev) {
			sent = true
		} else {
			metrics.DroppedEvents.Inc()
		}
	}
	if sent {
		metrics.TypingNotifications.WithLabelValues(label).Inc()
	}
}
