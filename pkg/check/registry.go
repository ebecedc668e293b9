package check

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Factory builds a Check from a settings map. The "target" key always
// carries the address to probe; every other key is probe specific.
type Factory func(config map[string]any) (Check, error)

// Registry maps probe type names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register makes a probe type available under name. Registering the same
// name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("probe type %q: nil factory", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("probe type %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// CreateAll builds one probe of type name per target, in target order.
// Each factory gets its own copy of settings with "target" set; settings
// itself is not modified.
func (r *Registry) CreateAll(name string, settings map[string]any, targets []string) ([]Check, error) {
	factory, err := r.factory(name)
	if err != nil {
		return nil, err
	}

	checks := make([]Check, 0, len(targets))
	for _, target := range targets {
		chk, err := factory(withTarget(settings, target))
		if err != nil {
			return nil, fmt.Errorf("%s probe for %s: %w", name, target, err)
		}
		checks = append(checks, chk)
	}
	return checks, nil
}

// Types returns the registered probe type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

func (r *Registry) factory(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown probe type %q", name)
	}
	return factory, nil
}

// withTarget copies settings and injects the "target" key.
func withTarget(settings map[string]any, target string) map[string]any {
	config := make(map[string]any, len(settings)+1)
	maps.Copy(config, settings)
	config["target"] = target
	return config
}
