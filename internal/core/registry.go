package core

import (
	"sort"
	"sync"

	"github.com/bittu292021/chatbox/internal/metrics"
)

// PresenceNotifier receives online/offline edges from the Registry.
// It is called with the registry lock held and must not block or call
// back into the Registry.
type PresenceNotifier interface {
	Announce(userID string, state PresenceState)
}

// PresenceRegistry is the read side of the Registry used by the router
// and the typing coordinator.
type PresenceRegistry interface {
	Handles(userID string) []*Conn
	IsOnline(userID string) bool
}

// Registry maps user identities to their live connections.
type Registry struct {
	mu       sync.RWMutex
	users    map[string]map[string]*Conn // user -> conn id -> conn
	bindings map[string]string           // conn id -> user
	notifier PresenceNotifier
}

// NewRegistry creates an empty Registry. notifier may be nil.
func NewRegistry(notifier PresenceNotifier) *Registry {
	return &Registry{
		users:    make(map[string]map[string]*Conn),
		bindings: make(map[string]string),
		notifier: notifier,
	}
}

// Bind records conn under userID. Rebinding the same pair is a no-op;
// binding a connection that belongs to another user fails with ErrAlreadyBound.
// The first connection of a user announces it online.
func (r *Registry) Bind(conn *Conn, userID string) error {
	if userID == "" {
		return ErrBadRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[conn.ID]; ok {
		if existing == userID {
			return nil
		}
		return ErrAlreadyBound
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[string]*Conn)
		r.users[userID] = set
	}
	set[conn.ID] = conn
	r.bindings[conn.ID] = userID

	if len(set) == 1 {
		metrics.OnlineUsers.Inc()
		if r.notifier != nil {
			r.notifier.Announce(userID, PresenceOnline)
		}
	}
	return nil
}

// Unbind removes the connection from whatever user owns it and returns that
// user. Unbinding a connection that was never bound is a no-op.
// Removing a user's last connection announces it offline.
func (r *Registry) Unbind(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bindings[connID]
	if !ok {
		return "", false
	}
	delete(r.bindings, connID)

	set := r.users[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, userID)
		metrics.OnlineUsers.Dec()
		if r.notifier != nil {
			r.notifier.Announce(userID, PresenceOffline)
		}
	}
	return userID, true
}

// ConnectionsFor returns the ids of the user's live connections.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Handles returns the user's live connections.
func (r *Registry) Handles(userID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.users[userID]
	conns := make([]*Conn, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// OnlineUsers returns the sorted list of online users.
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.users))
	for u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// BoundUser returns the user a connection is bound to.
func (r *Registry) BoundUser(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.bindings[connID]
	return u, ok
}
