package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IdentifierRegistry hands out unique IDs to live objects and remembers
// their owner until the ID is released.
type IdentifierRegistry struct {
	mu     sync.RWMutex
	owners map[uuid.UUID]interface{}
}

func NewIdentifierRegistry() *IdentifierRegistry {
	return &IdentifierRegistry{
		owners: make(map[uuid.UUID]interface{}),
	}
}

func (r *IdentifierRegistry) AquireNewID(owner interface{}) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		id := uuid.New()
		// Collisions are practically impossible, but a live ID must never be reused.
		if _, taken := r.owners[id]; !taken {
			r.owners[id] = owner
			return id
		}
	}
}

func (r *IdentifierRegistry) ReleaseID(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.owners[id]; !ok {
		return fmt.Errorf("identifier release: id '%s' is not registered. Nothing was done", id)
	}
	delete(r.owners, id)
	return nil
}

func (r *IdentifierRegistry) Owner(id uuid.UUID) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.owners[id]
	return o, ok
}

// Owners returns a snapshot of every live owner.
func (r *IdentifierRegistry) Owners() []interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]interface{}, 0, len(r.owners))
	for _, o := range r.owners {
		out = append(out, o)
	}
	return out
}

func (r *IdentifierRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}
