package rwe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aalemi-dev/rwe/logger"
	"github.com/aalemi-dev/rwe/observability"
)

// fakeEngine records assigned variables and displayed templates.
type fakeEngine struct {
	mu        sync.Mutex
	vars      map[string]any
	displayed []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{vars: make(map[string]any)}
}

func (e *fakeEngine) Assign(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

func (e *fakeEngine) Display(template string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayed = append(e.displayed, template)
	return nil
}

func (e *fakeEngine) Get(name string) any {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vars[name]
}

// echoModule publishes its greeting setting and counts executions.
type echoModule struct {
	*ModuleBase
	runs  int
	fail  bool
	reset int
}

func newEchoFactory(built *int) Factory {
	return func(h *Host) Module {
		*built++
		return &echoModule{ModuleBase: NewModuleBase(h, "echo", Schema{
			"greeting": {Default: "hello", Kind: KindString},
		})}
	}
}

func (m *echoModule) Reset() {
	m.reset++
	m.ModuleBase.Reset()
}

func (m *echoModule) Execute(_ context.Context, settings Settings) any {
	m.PreExecute(settings)
	m.runs++
	if m.fail {
		m.Fail("echo failed", "second <i>line</i>")
	}
	m.Publish("greeting", m.SettingStr("greeting", ""))
	return m.runs
}

func newTestHost(t *testing.T, opts ...Option) (*Host, *bytes.Buffer, *[]int) {
	t.Helper()
	var out bytes.Buffer
	var codes []int
	base := []Option{
		WithOutput(&out),
		WithExitFunc(func(code int) { codes = append(codes, code) }),
	}
	return New(append(base, opts...)...), &out, &codes
}

func TestExecuteModule_CachedInstanceIsReset(t *testing.T) {
	t.Parallel()
	var built int
	tpl := newFakeEngine()
	h, _, _ := newTestHost(t, WithTemplateEngine(tpl), WithModule("echo", newEchoFactory(&built)))

	assert.Equal(t, 1, h.ExecuteModule(context.Background(), "echo", Settings{"greeting": "hi"}))
	assert.Equal(t, "hi", tpl.Get("RWE_Module_echo__greeting"))

	assert.Equal(t, 2, h.ExecuteModule(context.Background(), "echo", nil))
	assert.Equal(t, "hello", tpl.Get("RWE_Module_echo__greeting"))
	assert.Equal(t, 1, built)
	assert.Equal(t, "", h.ActiveModule())
}

func TestExecuteModule_UncachedBuildsFreshInstances(t *testing.T) {
	t.Parallel()
	var built int
	h, _, _ := newTestHost(t, WithModuleCaching(false), WithModule("echo", newEchoFactory(&built)))

	assert.Equal(t, 1, h.ExecuteModule(context.Background(), "echo", nil))
	assert.Equal(t, 1, h.ExecuteModule(context.Background(), "echo", nil))
	assert.Equal(t, 2, built)
}

func TestClearModuleCache(t *testing.T) {
	t.Parallel()
	var built int
	h, _, _ := newTestHost(t, WithModule("echo", newEchoFactory(&built)))

	h.ExecuteModule(context.Background(), "echo", nil)
	h.ClearModuleCache()
	h.ExecuteModule(context.Background(), "echo", nil)
	assert.Equal(t, 2, built)
}

func TestPublish_IsDataFlag(t *testing.T) {
	t.Parallel()
	tpl := newFakeEngine()
	h, _, _ := newTestHost(t, WithTemplateEngine(tpl))
	m := NewModuleBase(h, "pfx", nil)

	m.PreExecute(Settings{VariablePrefixKey: "custom"})
	assert.Equal(t, 0, tpl.Get("RWE_Module_custom__isData"))

	m.Publish("rows", []int{1})
	assert.Equal(t, 1, tpl.Get("RWE_Module_custom__isData"))
	assert.Equal(t, []int{1}, h.ModuleVar("custom", "rows"))

	m.Reset()
	assert.Equal(t, "pfx", m.VariablePrefix())
}

func TestPublish_WithoutEngineIsNoop(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHost(t)
	m := NewModuleBase(h, "pfx", nil)

	assert.NotPanics(t, func() {
		m.PreExecute(nil)
		m.Publish("rows", 1)
	})
}

func TestFail_ConsoleOutput(t *testing.T) {
	t.Parallel()
	var built int
	h, out, codes := newTestHost(t, WithModule("echo", newEchoFactory(&built)))
	h.ExecuteModule(context.Background(), "echo", nil)
	mod, _ := h.cache["echo"].(*echoModule)
	require.NotNil(t, mod)
	mod.fail = true

	_, err := h.Run(context.Background(), "echo", nil)

	var ab *Abort
	require.ErrorAs(t, err, &ab)
	assert.Equal(t, "echo", ab.Module)
	assert.NotEmpty(t, ab.ExecutionID)
	assert.Equal(t, 1, ab.ExitStatus())
	assert.Equal(t, []int{1}, *codes)
	assert.Equal(t, "", h.ActiveModule())

	rule := "******************************************************************************\n"
	assert.Equal(t, rule+
		"Exception: echo failed\n"+
		"Exception: second line\n"+
		"In module: Module_echo\n"+
		rule, out.String())
}

func TestFail_DefaultTemplate(t *testing.T) {
	t.Parallel()
	tpl := newFakeEngine()
	h, out, _ := newTestHost(t, WithTemplateEngine(tpl))

	require.PanicsWithValue(t, &Abort{Messages: []string{"unknown exception"}}, func() { h.Fail() })

	assert.Equal(t, []string{"unknown exception"}, tpl.Get(VarExceptionMessages))
	assert.Equal(t, 0, tpl.Get(VarIsModuleActive))
	assert.Nil(t, tpl.Get(VarActiveModule))
	assert.Contains(t, out.String(), "  <b>Exception</b>: unknown exception\n</div>")
	assert.NotContains(t, out.String(), exceptionDetailsMarker)
}

func TestFail_DefaultTemplateInModule(t *testing.T) {
	t.Parallel()
	var built int
	tpl := newFakeEngine()
	h, out, _ := newTestHost(t, WithTemplateEngine(tpl), WithModule("echo", newEchoFactory(&built)))
	h.ExecuteModule(context.Background(), "echo", nil)
	h.cache["echo"].(*echoModule).fail = true

	_, err := h.Run(context.Background(), "echo", nil)
	require.Error(t, err)

	assert.Equal(t, 1, tpl.Get(VarIsModuleActive))
	assert.Equal(t, "Module_echo", tpl.Get(VarActiveModule))
	assert.Contains(t, out.String(),
		"  <b>Exception</b>: echo failed<br />\n"+
			"  <b>Exception</b>: second <i>line</i><br />\n"+
			"  <b>In module</b>: Module_echo")
}

func TestFail_UserTemplate(t *testing.T) {
	t.Parallel()
	tpl := newFakeEngine()
	h, out, _ := newTestHost(t, WithTemplateEngine(tpl), WithExceptionTemplate("error.tpl"))

	require.Panics(t, func() { h.Fail("boom") })
	assert.Equal(t, []string{"error.tpl"}, tpl.displayed)
	assert.Empty(t, out.String())
}

func TestExecuteModule_NotFound(t *testing.T) {
	t.Parallel()
	h, out, _ := newTestHost(t, WithModuleDirs(t.TempDir()))

	_, err := h.Run(context.Background(), "nosuch", nil)

	var ab *Abort
	require.ErrorAs(t, err, &ab)
	require.Len(t, ab.Messages, 1)
	assert.Contains(t, ab.Messages[0], "File 'Module.nosuch.so' not found in search path")
	assert.Empty(t, ab.Module)
	assert.NotContains(t, out.String(), "In module")
}

func TestExecuteModule_InvalidPluginDebug(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Module.broken.so"), []byte("not a plugin"), 0o600))
	h, _, _ := newTestHost(t, WithModuleDirs(dir), WithDebug(true))

	_, err := h.Run(context.Background(), "broken", nil)

	var ab *Abort
	require.ErrorAs(t, err, &ab)
	require.Len(t, ab.Messages, 2)
	assert.Contains(t, ab.Messages[0], "could not be opened as a plugin")
	assert.Contains(t, ab.Messages[1], "Module.broken.so")
}

func TestFindFileRecursive(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, p := range []string{
		"a/Module.x.so",
		"Module.x.so",
		"a/deep/Module.y.so",
		"b/Module.y.so",
	} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o600))
	}

	got, ok := findFileRecursive("Module.x.so", root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "Module.x.so"), got)

	got, ok = findFileRecursive("Module.y.so", root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "a", "deep", "Module.y.so"), got)

	_, ok = findFileRecursive("Module.z.so", root)
	assert.False(t, ok)
}

func TestAddModuleDir(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHost(t, WithModuleDirs("one"))

	h.AddModuleDir("two")
	assert.Equal(t, []string{"one", "two"}, h.ModuleDirs())

	assert.Panics(t, func() { h.AddModuleDir("") })
	assert.Equal(t, []string{"one", "two"}, h.ModuleDirs())
}

func TestModuleVar_RequiresGetter(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHost(t)

	assert.Panics(t, func() { h.ModuleVar("x", "y") })
}

func TestRegisterModule(t *testing.T) {
	var built int
	RegisterModule("registered_echo", newEchoFactory(&built))

	assert.Contains(t, Modules(), "registered_echo")
	assert.True(t, sort.StringsAreSorted(Modules()))
	assert.Panics(t, func() { RegisterModule("registered_echo", newEchoFactory(&built)) })
	assert.Panics(t, func() { RegisterModule("", newEchoFactory(&built)) })
	assert.Panics(t, func() { RegisterModule("nil_factory", nil) })

	h, _, _ := newTestHost(t)
	assert.Equal(t, 1, h.ExecuteModule(context.Background(), "registered_echo", nil))
	assert.Equal(t, 1, built)
}

func TestExecuteModule_ObservesAndLogs(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zap.InfoLevel)
	var events []observability.OperationContext
	var built int
	h, _, _ := newTestHost(t,
		WithLogger(logger.NewWithCore(core, false)),
		WithObserver(observability.ObserverFunc(func(ctx observability.OperationContext) {
			events = append(events, ctx)
		})),
		WithModule("echo", newEchoFactory(&built)),
	)

	h.ExecuteModule(context.Background(), "echo", Settings{OpSettingKey: "select"})
	h.cache["echo"].(*echoModule).fail = true
	_, err := h.Run(context.Background(), "echo", nil)
	require.Error(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "rwe", events[0].Component)
	assert.Equal(t, "execute_module", events[0].Operation)
	assert.Equal(t, "echo", events[0].Resource)
	assert.Equal(t, "select", events[0].SubResource)
	assert.NoError(t, events[0].Error)
	assert.NotEmpty(t, events[0].Metadata["execution_id"])

	var ab *Abort
	require.ErrorAs(t, events[1].Error, &ab)
	assert.Equal(t, events[1].Metadata["execution_id"], ab.ExecutionID)

	assert.Equal(t, 1, logs.FilterMessage("module loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("module executed").Len())
	assert.Equal(t, 1, logs.FilterMessage("module host aborted").Len())
	assert.Equal(t, 1, logs.FilterMessage("module execution aborted").Len())
}

func TestExecuteModule_PanicsPropagate(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	h, _, _ := newTestHost(t, WithModule("panicky", func(h *Host) Module {
		return panicModule{err: boom}
	}))

	assert.PanicsWithValue(t, boom, func() { h.ExecuteModule(context.Background(), "panicky", nil) })
	assert.Equal(t, "", h.ActiveModule())
}

type panicModule struct{ err error }

func (m panicModule) Execute(context.Context, Settings) any { panic(m.err) }
func (panicModule) Reset() {}

func TestOpModuleBase(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHost(t)
	m := NewOpModuleBase(h, "ops", Schema{OpSettingKey: {Default: "select", Kind: KindString}}, "select", "insert")

	assert.Equal(t, "select", m.Op())
	assert.True(t, m.IsValidOp("insert"))
	assert.False(t, m.IsValidOp("drop"))
	assert.Equal(t, "select, insert", m.ValidOpsString())

	m.PreExecute(Settings{OpSettingKey: "insert"})
	assert.Equal(t, "insert", m.Op())

	m.SetValidOps("only")
	assert.Equal(t, []string{"only"}, m.ValidOps())
}

func TestConfigOptions(t *testing.T) {
	t.Parallel()
	h := New(Config{
		ModuleDirs:         []string{"mods"},
		DisableModuleCache: true,
		ExceptionTemplate:  "err.tpl",
		Debug:              true,
		WebRootDir:         "/srv/www",
	}.Options()...)

	assert.Equal(t, []string{"mods"}, h.ModuleDirs())
	assert.False(t, h.ModuleCaching())
	assert.Equal(t, "err.tpl", h.ExceptionTemplate())
	assert.True(t, h.Debug())
	assert.Equal(t, "/srv/www", h.WebRootDir())
}
