package database

import (
	"sort"
	"sync"

	"github.com/aalemi-dev/rwe/dsn"
)

// Factory creates an unconnected manager for an engine.
type Factory func(desc dsn.Descriptor, persistent bool, opts ...Option) Manager

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available under its tag. Tags are case-sensitive.
// It panics on an empty tag, a nil factory or a duplicate tag, since those are
// wiring mistakes caught at init time.
func Register(engine string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if engine == "" {
		panic("database: Register called with empty engine tag")
	}
	if factory == nil {
		panic("database: Register called with nil factory for " + engine)
	}
	if _, exists := registry[engine]; exists {
		panic("database: Register called twice for engine " + engine)
	}
	registry[engine] = factory
}

// IsRegistered reports whether engine has a factory.
func IsRegistered(engine string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}

// Engines returns the registered engine tags, sorted.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates an unconnected manager for desc.Engine.
func Open(desc dsn.Descriptor, persistent bool, opts ...Option) (Manager, error) {
	registryMu.RLock()
	factory, ok := registry[desc.Engine]
	registryMu.RUnlock()

	if !ok {
		return nil, &UnknownEngineError{Engine: desc.Engine, Available: Engines()}
	}
	return factory(desc, persistent, opts...), nil
}

// Get parses s and creates an unconnected manager for its engine.
func Get(s string, persistent bool, opts ...Option) (Manager, error) {
	return Open(dsn.Parse(s), persistent, opts...)
}

// MustGet is like Get but panics when the engine is not registered.
func MustGet(s string, persistent bool, opts ...Option) Manager {
	m, err := Get(s, persistent, opts...)
	if err != nil {
		panic(err)
	}
	return m
}
