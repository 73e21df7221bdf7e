package rwe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aalemi-dev/rwe/tracer"
)

// ExecuteModule runs the named module with settings and returns its result.
//
// With caching on, the instance is taken from the cache, loading it on first use,
// and Reset before it runs. With caching off a fresh instance is built. A module
// that cannot be resolved is fatal through Fail. The active module is cleared when
// the call returns or aborts.
func (h *Host) ExecuteModule(ctx context.Context, name string, settings Settings) any {
	if ctx == nil {
		ctx = context.Background()
	}

	mod := h.module(ctx, name)

	exec := &execution{name: name, id: uuid.NewString(), op: requestedOp(settings)}
	var span tracer.Span
	if h.tracer != nil {
		attrs := tracer.Attributes{"rwe.module": name, "rwe.execution_id": exec.id}
		if exec.op != "" {
			attrs["rwe.op"] = exec.op
		}
		ctx, span = h.tracer.StartSpan(ctx, "rwe.module "+name, attrs)
	}
	exec.ctx = ctx

	h.mu.Lock()
	prev := h.active
	h.active = exec
	h.mu.Unlock()

	start := time.Now()
	completed := false
	defer func() {
		h.mu.Lock()
		h.active = prev
		h.mu.Unlock()

		var r any
		if !completed {
			r = recover()
		}
		err := abortError(r, exec)
		elapsed := time.Since(start)
		h.finishExecution(exec, elapsed, err)
		if span != nil {
			span.SetAttributes(tracer.Attributes{"rwe.duration_ms": elapsed})
			span.RecordError(err)
			span.End()
		}
		if r != nil {
			panic(r)
		}
	}()

	result := mod.Execute(ctx, settings)
	completed = true
	return result
}

// Run is ExecuteModule for callers that handle failures as values: an abort raised
// during the execution is returned as *Abort instead of propagating as a panic.
// The exit function still runs first, so hosts used with Run normally install one
// that returns.
func (h *Host) Run(ctx context.Context, name string, settings Settings) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			ab, ok := r.(*Abort)
			if !ok {
				panic(r)
			}
			err = ab
		}
	}()
	return h.ExecuteModule(ctx, name, settings), nil
}

// abortError turns a recovered panic value into the error reported for the execution.
func abortError(r any, exec *execution) error {
	switch v := r.(type) {
	case nil:
		return nil
	case *Abort:
		if v.ExecutionID == "" {
			v.ExecutionID = exec.id
		}
		return v
	case error:
		return fmt.Errorf("module %s panicked: %w", exec.name, v)
	default:
		return fmt.Errorf("module %s panicked: %v", exec.name, v)
	}
}

// module resolves the instance for name, from the cache when caching is on.
func (h *Host) module(ctx context.Context, name string) Module {
	h.mu.Lock()
	caching := h.caching
	mod, cached := h.cache[name]
	h.mu.Unlock()

	if !caching {
		return h.load(ctx, name)
	}

	if !cached {
		mod = h.load(ctx, name)
		h.mu.Lock()
		h.cache[name] = mod
		h.mu.Unlock()
	}
	mod.Reset()
	return mod
}

// load builds a new instance of name from, in order, the host's factories, the
// process registry and the module plugins found in the module dirs.
func (h *Host) load(ctx context.Context, name string) Module {
	h.mu.Lock()
	f, ok := h.factories[name]
	h.mu.Unlock()

	if !ok {
		f, ok = registeredFactory(name)
	}
	if !ok {
		var err error
		f, err = h.loadPlugin(name)
		if err != nil {
			h.Fail(h.loadFailure(name, err)...)
			return nil
		}
	}

	mod := f(h)
	if mod == nil {
		h.Fail(fmt.Sprintf("Unable to load module '%s', reason: its constructor returned no module.", name))
		return nil
	}
	if h.logger != nil {
		h.logger.InfoWithContext(ctx, "module loaded", nil, map[string]interface{}{
			"module": name,
		})
	}
	return mod
}

func (h *Host) loadFailure(name string, err error) []string {
	reason := fmt.Sprintf("Unable to load module '%s', reason", name)
	file := ModuleFilePrefix + name + ModuleFileExt
	symbol := ModuleClassPrefix + name

	var msg string
	switch {
	case errors.Is(err, ErrModuleNotFound):
		msg = fmt.Sprintf("%s: File '%s' not found in search path. Did you forget to add its module directory with AddModuleDir?", reason, file)
	case errors.Is(err, ErrInvalidModule):
		msg = fmt.Sprintf("%s: File exists but does not export a valid '%s' constructor of type func(*rwe.Host) rwe.Module.", reason, symbol)
	default:
		msg = fmt.Sprintf("%s: File exists but could not be opened as a plugin (to see why, enable debug mode with SetDebug(true)).", reason)
	}

	msgs := []string{msg}
	if h.Debug() {
		msgs = append(msgs, err.Error())
	}
	return msgs
}
