package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bittu292021/chatbox/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent fails if an event of kind arrives within wait.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.After(wait)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

// drain discards everything currently buffered on the channel.
func drain(ch <-chan *Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

var errStoreDown = errors.New("store down")

// memStore is an in-memory store.MessageStore.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	messages  map[int64]*store.Message
	order     []int64
	failSave  bool
	failMark  bool
	saveDelay time.Duration
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[int64]*store.Message)}
}

func (m *memStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if m.saveDelay > 0 {
		select {
		case <-time.After(m.saveDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errStoreDown
	}
	m.nextID++
	msg.ID = m.nextID
	cp := *msg
	m.messages[msg.ID] = &cp
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *memStore) MarkDelivered(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMark {
		return errStoreDown
	}
	msg, ok := m.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	msg.Delivered = true
	return nil
}

func (m *memStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *memStore) setFailSave(v bool) {
	m.mu.Lock()
	m.failSave = v
	m.mu.Unlock()
}

type presenceCall struct {
	user  string
	state PresenceState
}

// recordingNotifier captures registry edges.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (r *recordingNotifier) Announce(userID string, state PresenceState) {
	r.mu.Lock()
	r.calls = append(r.calls, presenceCall{user: userID, state: state})
	r.mu.Unlock()
}

func (r *recordingNotifier) snapshot() []presenceCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]presenceCall, len(r.calls))
	copy(out, r.calls)
	return out
}

func newTestHub(t *testing.T, st store.MessageStore, typingTimeout time.Duration) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(Options{
		Store:          st,
		TypingTimeout:  typingTimeout,
		StoreTimeout:   time.Second,
		OutboundBuffer: 64,
		Policy:         DefaultMessagePolicy(),
		Logger:         testLogger(),
	})
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

// openBound opens a connection on hub and binds it to user.
func openBound(t *testing.T, hub *Hub, user string) *Conn {
	t.Helper()

	c := hub.Open()
	if err := hub.Handle(context.Background(), c, &Command{Kind: CommandBind, User: user}); err != nil {
		t.Fatalf("bind %s: %v", user, err)
	}
	mustEvent(t, c.Events, EventBound)
	return c
}
