package rwe

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterModule makes a module available to every host under name. Modules call it
// from init, so linking a module package in is enough to use it:
//
//	import _ "github.com/aalemi-dev/rwe/modules/dbdata"
//
// It panics on an empty name, a nil factory or a duplicate registration.
func RegisterModule(name string, f Factory) {
	if name == "" {
		panic("rwe: RegisterModule with empty name")
	}
	if f == nil {
		panic(fmt.Sprintf("rwe: RegisterModule %q with nil factory", name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("rwe: RegisterModule called twice for %q", name))
	}
	registry[name] = f
}

// Modules lists the registered module names in order.
func Modules() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func registeredFactory(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}
