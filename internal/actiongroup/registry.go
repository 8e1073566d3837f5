package actiongroup

import (
	"fmt"
	"log/slog"
	"sort"
)

// Registry maps an action name (apiPath or function) to its handler
type Registry[H any] struct {
	handlers map[string]H
	logger   *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry[H any](logger *slog.Logger) *Registry[H] {
	return &Registry[H]{
		handlers: make(map[string]H),
		logger:   logger,
	}
}

// Register adds a handler for name
func (r *Registry[H]) Register(name string, handler H) error {
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler for action %s already registered", name)
	}

	r.handlers[name] = handler
	r.logger.Debug("registered action handler",
		slog.String("action", name),
	)
	return nil
}

// MustRegister adds a handler and panics on duplicates
func (r *Registry[H]) MustRegister(name string, handler H) {
	if err := r.Register(name, handler); err != nil {
		panic(err)
	}
}

// Get retrieves the handler for name
func (r *Registry[H]) Get(name string) (H, error) {
	handler, exists := r.handlers[name]
	if !exists {
		var zero H
		return zero, fmt.Errorf("no handler registered for action: %s", name)
	}
	return handler, nil
}

// Names returns the registered action names in sorted order
func (r *Registry[H]) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
