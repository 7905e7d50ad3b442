package action

import (
	"context"
	"sort"
	"sync"

	"github.com/tombee/docflow/pkg/errors"
)

// Handler executes one workflow step. config is the step configuration
// after template resolution; state is the run's accumulated state.
// Handlers report domain-level failure through a "failed" status in the
// result map and reserve the error return for conditions that make the
// result itself meaningless.
type Handler func(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error)

// Registry maps step type strings to their handlers. The type string is
// the only polymorphism axis for steps: unknown types are configuration
// errors surfaced at dispatch time, not at definition load time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry. Use RegisterBuiltins to
// populate it with the standard handler set.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds or replaces the handler for a step type.
func (r *Registry) Register(stepType string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[stepType] = handler
}

// Get retrieves the handler for a step type.
func (r *Registry) Get(stepType string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handler, ok := r.handlers[stepType]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "action", ID: stepType}
	}
	return handler, nil
}

// Has reports whether a handler is registered for the step type.
func (r *Registry) Has(stepType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[stepType]
	return ok
}

// Execute dispatches a step to its handler.
func (r *Registry) Execute(ctx context.Context, stepType string, config, state map[string]interface{}) (map[string]interface{}, error) {
	handler, err := r.Get(stepType)
	if err != nil {
		return nil, err
	}
	return handler(ctx, config, state)
}

// Types returns the registered step types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
