package aggregator

import (
	"context"
	"sync"

	"github.com/viant/nodeflow/model/graph"
)

// Handler is a user supplied aggregation used by the custom strategy.
type Handler func(ctx context.Context, connections []*graph.Connection, node *graph.NodeData) (interface{}, error)

// HandlerRegistry is a lookup table of named custom handlers.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: map[string]Handler{}}
}

// Register adds or replaces a handler.
func (r *HandlerRegistry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Lookup returns a handler by name.
func (r *HandlerRegistry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret, ok := r.handlers[name]
	return ret, ok
}

// Names returns registered handler names.
func (r *HandlerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ret := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		ret = append(ret, name)
	}
	return ret
}
