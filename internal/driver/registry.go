package driver

import (
	"sync"

	"github.com/berbicanes/queryark/internal/dberrors"
)

// Registry maps connection IDs to live driver handles. Safe for concurrent
// use; every lookup that misses reports CodeConnectionNotFound so the
// command surface can hand it straight back to the caller.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Handle
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Handle)}
}

func (r *Registry) Add(id string, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = handle
}

func (r *Registry) Get(id string) (Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.items[id]
	if !ok {
		return Handle{}, dberrors.ConnectionNotFound(id)
	}
	return h, nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return dberrors.ConnectionNotFound(id)
	}
	delete(r.items, id)
	return nil
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
