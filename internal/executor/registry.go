package executor

import (
	"errors"
	"sync"
)

// Registry is the set of processes that are still running. The zero value
// is ready to use.
type Registry struct {
	mu    sync.Mutex
	items map[Process]struct{}
}

// Add tracks p. Adding the same process twice has no effect.
func (r *Registry) Add(p Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[Process]struct{})
	}
	r.items[p] = struct{}{}
}

// Remove stops tracking p.
func (r *Registry) Remove(p Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, p)
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// CancelAll cancels every tracked process and empties the registry.
// It returns how many were cancelled and the joined cancel errors.
// Calling it on an empty registry is a no-op.
func (r *Registry) CancelAll() (int, error) {
	r.mu.Lock()
	items := r.items
	r.items = nil
	r.mu.Unlock()

	var errs []error
	for p := range items {
		if err := p.Cancel(); err != nil {
			errs = append(errs, err)
		}
	}
	return len(items), errors.Join(errs...)
}
