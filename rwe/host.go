package rwe

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/observability"
	"github.com/aalemi-dev/rwe/tracer"
)

// Naming conventions shared by template variables and plugin discovery.
const (
	ModuleFilePrefix  = "Module."
	ModuleClassPrefix = "Module_"
	ModuleFileExt     = ".so"
	VariableNamespace = "RWE_Module_"
)

// Host executes modules. It holds the database manager and template engine shared by
// every module, the module search path and the module instance cache.
//
// A Host runs one module at a time per goroutine; the cache and configuration are
// safe for concurrent use but a cached module instance is not.
type Host struct {
	mu sync.Mutex

	db        database.Manager
	tpl       TemplateEngine
	dirs      []string
	caching   bool
	cache     map[string]Module
	factories map[string]Factory

	exceptionTemplate string
	debug             bool
	webRootDir        string

	active *execution

	out  io.Writer
	exit func(int)

	logger   Logger
	observer observability.Observer
	tracer   tracer.Tracer
}

// execution is the module currently running on the host.
type execution struct {
	name string
	id   string
	op   string
	ctx  context.Context
}

// Option configures a Host.
type Option func(*Host)

// WithDatabase attaches a database manager.
func WithDatabase(m database.Manager) Option {
	return func(h *Host) { h.db = m }
}

// WithTemplateEngine attaches the template engine modules publish into.
func WithTemplateEngine(e TemplateEngine) Option {
	return func(h *Host) { h.tpl = e }
}

// WithModuleDirs sets the plugin search path.
func WithModuleDirs(dirs ...string) Option {
	return func(h *Host) { h.dirs = append([]string(nil), dirs...) }
}

// WithModuleCaching turns the module instance cache on or off. Default: on.
func WithModuleCaching(enabled bool) Option {
	return func(h *Host) { h.caching = enabled }
}

// WithExceptionTemplate sets the template displayed on failure.
func WithExceptionTemplate(tpl string) Option {
	return func(h *Host) { h.exceptionTemplate = tpl }
}

// WithDebug adds loader diagnostics to failure messages.
func WithDebug(debug bool) Option {
	return func(h *Host) { h.debug = debug }
}

// WithWebRootDir sets the web root directory.
func WithWebRootDir(dir string) Option {
	return func(h *Host) { h.webRootDir = dir }
}

// WithOutput sets where failures are written. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Host) { h.out = w }
}

// WithExitFunc replaces os.Exit, called by Fail with status 1. If the function
// returns, Fail panics with *Abort.
func WithExitFunc(fn func(int)) Option {
	return func(h *Host) { h.exit = fn }
}

// WithLogger attaches a logger for executions and failures.
func WithLogger(l Logger) Option {
	return func(h *Host) { h.logger = l }
}

// WithObserver attaches an observer notified after every module execution.
func WithObserver(obs observability.Observer) Option {
	return func(h *Host) { h.observer = obs }
}

// WithTracer starts one span per module execution.
func WithTracer(t tracer.Tracer) Option {
	return func(h *Host) { h.tracer = t }
}

// WithModule registers a factory on this host only. Host factories take precedence
// over RegisterModule and plugins.
func WithModule(name string, f Factory) Option {
	return func(h *Host) { h.factories[name] = f }
}

// New returns a host with module caching enabled, writing failures to os.Stdout and
// exiting through os.Exit.
func New(opts ...Option) *Host {
	h := &Host{
		caching:   true,
		cache:     make(map[string]Module),
		factories: make(map[string]Factory),
		out:       os.Stdout,
		exit:      os.Exit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

func (h *Host) SetDatabase(m database.Manager) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.db = m
}

// Database returns the attached manager, or nil.
func (h *Host) Database() database.Manager {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db
}

func (h *Host) HasDatabase() bool {
	return h.Database() != nil
}

func (h *Host) SetTemplateEngine(e TemplateEngine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tpl = e
}

func (h *Host) TemplateEngine() TemplateEngine {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tpl
}

func (h *Host) HasTemplateEngine() bool {
	return h.TemplateEngine() != nil
}

func (h *Host) SetModuleDirs(dirs ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirs = append([]string(nil), dirs...)
}

// AddModuleDir appends dir to the search path. An empty dir is fatal.
func (h *Host) AddModuleDir(dir string) {
	if dir == "" {
		h.Fail("AddModuleDir: tried to add an empty module directory")
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirs = append(h.dirs, dir)
}

func (h *Host) ModuleDirs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.dirs...)
}

func (h *Host) SetModuleCaching(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.caching = enabled
}

func (h *Host) ModuleCaching() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.caching
}

// ClearModuleCache drops every cached module instance.
func (h *Host) ClearModuleCache() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache = make(map[string]Module)
}

func (h *Host) SetExceptionTemplate(tpl string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exceptionTemplate = tpl
}

func (h *Host) ExceptionTemplate() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exceptionTemplate
}

func (h *Host) SetDebug(debug bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.debug = debug
}

func (h *Host) Debug() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.debug
}

func (h *Host) SetWebRootDir(dir string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.webRootDir = dir
}

func (h *Host) WebRootDir() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.webRootDir
}

// ActiveModule returns the name of the executing module, or "" between executions.
func (h *Host) ActiveModule() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active == nil {
		return ""
	}
	return h.active.name
}

// ModuleVar reads the template variable a module published under prefix and name.
// The template engine must implement VariableGetter; otherwise the call is fatal.
func (h *Host) ModuleVar(prefix, name string) any {
	getter, ok := h.TemplateEngine().(VariableGetter)
	if !ok {
		h.Fail("ModuleVar: no template engine attached or it cannot read variables back")
		return nil
	}
	return getter.Get(moduleVariable(prefix, name))
}

func moduleVariable(prefix, name string) string {
	return VariableNamespace + prefix + "__" + name
}
