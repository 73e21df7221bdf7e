package rwe

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
)

// loadPlugin searches the module dirs for Module.<name>.so and looks up its
// Module_<name> constructor. The symbol may be a function or a variable holding
// one.
func (h *Host) loadPlugin(name string) (Factory, error) {
	file := ModuleFilePrefix + name + ModuleFileExt

	path, ok := "", false
	for _, dir := range h.ModuleDirs() {
		if path, ok = findFileRecursive(file, dir); ok {
			break
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, file)
	}

	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	symbol := ModuleClassPrefix + name
	sym, err := p.Lookup(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidModule, path, err)
	}

	switch ctor := sym.(type) {
	case func(*Host) Module:
		return ctor, nil
	case *func(*Host) Module:
		if *ctor != nil {
			return *ctor, nil
		}
	case *Factory:
		if *ctor != nil {
			return *ctor, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: %s has type %T", ErrInvalidModule, path, symbol, sym)
}

// findFileRecursive looks for a regular file called name in dir, then in each
// subdirectory in name order, depth first.
func findFileRecursive(name, dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, e := range entries {
		if e.Name() == name && e.Type().IsRegular() {
			return filepath.Join(dir, name), true
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			if found, ok := findFileRecursive(name, filepath.Join(dir, e.Name())); ok {
				return found, true
			}
		}
	}
	return "", false
}
