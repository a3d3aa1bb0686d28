package core

import "sync"

// Registry binds connections to identities.
// A binding, once made, never changes for the connection's lifetime.
type Registry struct {
	mu       sync.RWMutex
	bindings map[*Client]Identity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[*Client]Identity)}
}

// Bind records c as owned by id. Binding the same identity twice is a no-op;
// binding a different one fails with ErrAlreadyAuthenticated.
func (r *Registry) Bind(c *Client, id Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bindings[c]; ok {
		if existing.ID != id.ID {
			return false, ErrAlreadyAuthenticated
		}
		return false, nil
	}
	r.bindings[c] = id
	return true, nil
}

// Resolve returns the identity owning c, or ErrUnauthenticated.
func (r *Registry) Resolve(c *Client) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bindings[c]
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

// Unbind removes the binding of c and returns what it was.
func (r *Registry) Unbind(c *Client) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bindings[c]
	if ok {
		delete(r.bindings, c)
	}
	return id, ok
}

// Len returns the number of bound connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}
