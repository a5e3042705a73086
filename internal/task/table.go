package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler starts an operation. Returning a nil Awaitable and a nil error
// means the operation finished synchronously and successfully.
type Handler func(ctx context.Context, args []string) (Awaitable, error)

// Table maps operation names to handlers.
type Table struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register adds a handler under name. Names must be non-empty, contain no
// whitespace, not start with an underscore, and be unique.
func (t *Table) Register(name string, h Handler) error {
	switch {
	case name == "":
		return fmt.Errorf("register: empty operation name")
	case strings.ContainsAny(name, " \t\r\n"):
		return fmt.Errorf("register %q: name contains whitespace", name)
	case strings.HasPrefix(name, "_"):
		return fmt.Errorf("register %q: name starts with an underscore", name)
	case h == nil:
		return fmt.Errorf("register %q: nil handler", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.handlers[name]; ok {
		return fmt.Errorf("register %q: already registered", name)
	}
	t.handlers[name] = h
	return nil
}

// MustRegister is Register for built-in operations; it panics on error.
func (t *Table) MustRegister(name string, h Handler) {
	if err := t.Register(name, h); err != nil {
		panic(err)
	}
}

// Lookup returns the handler registered under name.
func (t *Table) Lookup(name string) (Handler, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return h, nil
}

// Has reports whether name is registered.
func (t *Table) Has(name string) bool {
	_, err := t.Lookup(name)
	return err == nil
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.handlers))
	for name := range t.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch looks up name and calls its handler. Handler errors and panics
// are returned as *DispatchError; unknown names wrap ErrUnknownOperation.
func (t *Table) Dispatch(ctx context.Context, name string, args []string) (aw Awaitable, err error) {
	h, err := t.Lookup(name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			aw = nil
			err = &DispatchError{Task: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	aw, err = h(ctx, args)
	if err != nil {
		return nil, &DispatchError{Task: name, Err: err}
	}
	return aw, nil
}
