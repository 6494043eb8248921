package chat

import (
	"fmt"
	"slices"
	"sync"
)

// Registry tracks the live connections. All transports share a single
// Registry instance.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Add registers a connection. It fails with ErrDuplicateConnection if a
// connection with the same ID is already registered.
func (r *Registry) Add(conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := conn.ID()
	if _, ok := r.conns[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateConnection, id)
	}
	r.conns[id] = conn
	r.order = append(r.order, id)
	return nil
}

// Remove unregisters a connection and reports whether it was registered.
// Removing an absent connection is a no-op.
func (r *Registry) Remove(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := conn.ID()
	if _, ok := r.conns[id]; !ok {
		return false
	}
	delete(r.conns, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return true
}

// Contains reports whether the connection is registered.
func (r *Registry) Contains(conn Conn) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[conn.ID()]
	return ok
}

// Snapshot returns the registered connections in registration order.
// The slice is a copy; later membership changes do not affect it.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.conns[id])
	}
	return out
}

// Count returns number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// CloseAll unregisters and closes every connection.
func (r *Registry) CloseAll() {
	for _, c := range r.Snapshot() {
		if r.Remove(c) {
			_ = c.Close()
		}
	}
}
