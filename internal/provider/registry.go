package provider

import "fmt"

// Registry holds the configured adapters, keyed by provider name. Only
// providers present in the JSON configuration file are registered —
// the rest of the allow-list simply has no adapter to look up.
type Registry struct {
	adapters map[Name]Adapter
}

// NewRegistry builds a Registry from a set of already-constructed
// adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Name]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// ErrUnconfiguredProvider is returned by Get for a provider name that is
// not in the allow-list or was not configured at startup.
var ErrUnconfiguredProvider = fmt.Errorf("provider: not configured")

// Get returns the adapter registered for name.
func (r *Registry) Get(name Name) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, ErrUnconfiguredProvider
	}
	return a, nil
}
