package device

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory constructs a capability adapter of one kind.
type Factory func(logger *zap.Logger) (Capability, error)

// Registry maps adapter kind names to factories. It is an explicit
// value owned by the caller, constructed once at startup; there is no
// package-level registry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given kind. Registering the same
// kind twice is a programming error and is rejected.
func (r *Registry) Register(kind string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("adapter kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

// New constructs a capability of the given kind. Unknown kinds fail
// immediately (configuration error), before any connection attempt.
func (r *Registry) New(kind string, logger *zap.Logger) (Capability, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported adapter kind %q (known: %v)", kind, r.Kinds())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return factory(logger)
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
