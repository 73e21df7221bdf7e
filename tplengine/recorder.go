package tplengine

import (
	"fmt"
	"io"
	"os"
	"sync"
	"text/template"
)

// Variable is one assigned template variable.
type Variable struct {
	Name  string `json:"name" yaml:"name"`
	Value any    `json:"value" yaml:"value"`
}

// Recorder is a minimal template engine. It stores assigned variables and renders
// text/template files with them.
type Recorder struct {
	mu   sync.RWMutex
	vars map[string]any
	out  io.Writer
}

// NewRecorder returns a recorder that displays templates onto out. A nil out
// discards them.
func NewRecorder(out io.Writer) *Recorder {
	if out == nil {
		out = io.Discard
	}
	return &Recorder{vars: make(map[string]any), out: out}
}

// Assign stores value under name, replacing any previous value.
func (r *Recorder) Assign(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars[name] = value
}

// Get returns the value assigned to name, or nil.
func (r *Recorder) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vars[name]
}

// Vars returns the assigned variables ordered by name.
func (r *Recorder) Vars() []Variable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Variable, 0, len(r.vars))
	for name, value := range r.vars {
		out = append(out, Variable{Name: name, Value: value})
	}
	sortVariables(out)
	return out
}

// Reset forgets every variable.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars = make(map[string]any)
}

// Display executes the template file at path with the variables as its data, so
// {{.RWE_exceptionMessages}} reads an assigned variable.
func (r *Recorder) Display(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	tpl, err := template.New(path).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return fmt.Errorf("parse template %s: %w", path, err)
	}

	data := r.Snapshot()
	if err := tpl.Execute(r.out, data); err != nil {
		return fmt.Errorf("execute template %s: %w", path, err)
	}
	return nil
}

// Snapshot returns a copy of the variables keyed by name.
func (r *Recorder) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.vars))
	for k, v := range r.vars {
		out[k] = v
	}
	return out
}

// Render writes the variables to w in format.
func (r *Recorder) Render(w io.Writer, format Format) error {
	vars := r.Vars()
	if format == FormatTable {
		return renderVariables(w, vars)
	}
	return Encode(w, format, r.Snapshot())
}
