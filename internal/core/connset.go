package core

import "sync"

// ConnSet tracks every open connection, bound or not.
type ConnSet struct {
	mu   sync.RWMutex
	byID map[string]*Conn
}

// NewConnSet creates an empty ConnSet.
func NewConnSet() *ConnSet {
	return &ConnSet{byID: make(map[string]*Conn)}
}

// Add registers a connection.
func (s *ConnSet) Add(c *Conn) {
	s.mu.Lock()
	s.byID[c.ID] = c
	s.mu.Unlock()
}

// Remove reports whether the connection was present.
func (s *ConnSet) Remove(id string) bool {
	s.mu.Lock()
	_, ok := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()
	return ok
}

// Get returns the connection for id, or nil.
func (s *ConnSet) Get(id string) *Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// All returns a snapshot safe to iterate without holding the lock.
func (s *ConnSet) All() []*Conn {
	s.mu.RLock()
	conns := make([]*Conn, 0, len(s.byID))
	for _, c := range s.byID {
		conns = append(conns, c)
	}
	s.mu.RUnlock()
	return conns
}

// Count returns the number of open connections.
func (s *ConnSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
