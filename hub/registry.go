package hub

import (
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

// Registry tracks which live connection belongs to which registered
// username. Entirely volatile: process restart rebuilds it empty.
//
// Each Hub owns its own Registry instance; nothing here is process-global,
// so independent hubs never share binding state.
type Registry struct {
	mu       sync.RWMutex
	bindings map[domain.ConnectionID]string
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[domain.ConnectionID]string)}
}

var _ contract.IRegistry = (*Registry)(nil)

// Bind associates a connection with a username. A connection already bound
// keeps its existing binding; the call reports false and changes nothing.
func (r *Registry) Bind(id domain.ConnectionID, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bindings[id]; ok {
		return false
	}
	r.bindings[id] = username
	return true
}

// Unbind removes and returns the bound username. A missing connection is
// not an error: disconnect logic substitutes a placeholder identity.
func (r *Registry) Unbind(id domain.ConnectionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.bindings[id]
	if ok {
		delete(r.bindings, id)
	}
	return username, ok
}

func (r *Registry) IsBound(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.bindings[id]
	return ok
}
