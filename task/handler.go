package task

import (
	"context"
	"fmt"
	"sync"
)

// Handler defines the interface for executing a specific task type.
// Domain packages implement this interface for their handler names, keeping
// the queue infrastructure decoupled from pipeline logic.
//
// Handlers decode their own payload types from task.Payload and record
// failures on the narrowest owning entity (raw job before run before job)
// rather than letting errors escape the queue boundary.
type Handler interface {
	// Execute runs the task and returns any error encountered.
	// Context cancellation: handlers must check ctx.Done() at their
	// blocking points and exit cleanly when cancelled.
	Execute(ctx context.Context, t *Task) error

	// Name returns the handler name (e.g., "scrape.board").
	// Used for handler registration and task routing.
	Name() string
}

// Registry manages task handlers by name.
// Thread-safe for concurrent handler registration and lookup.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler using its name.
// Panics if a handler is already registered with that name.
func (r *Registry) Register(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := handler.Name()
	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("handler already registered for name: %s", name))
	}
	r.handlers[name] = handler
}

// Get retrieves the handler for a handler name.
// Returns nil if no handler is registered.
func (r *Registry) Get(name string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[name]
}

// Has checks if a handler is registered for a name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.handlers[name]
	return exists
}

// Names returns all registered handler names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Execute dispatches a task to its registered handler.
func (r *Registry) Execute(ctx context.Context, t *Task) error {
	if t.HandlerName == "" {
		return fmt.Errorf("task missing handler_name")
	}

	handler := r.Get(t.HandlerName)
	if handler == nil {
		return fmt.Errorf("no handler registered for handler name: %s", t.HandlerName)
	}

	return handler.Execute(ctx, t)
}
