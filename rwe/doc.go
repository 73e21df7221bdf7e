// Package rwe is the module execution host.
//
// A Host runs named modules against a shared database manager and template
// engine. Modules publish template variables named RWE_Module_<prefix>__<name>
// and return a value that ExecuteModule hands back unchanged.
//
// # Basic Usage
//
//	h := rwe.New(
//	    rwe.WithDatabase(mgr),
//	    rwe.WithTemplateEngine(tplengine.NewRecorder(os.Stdout)),
//	    rwe.WithModuleDirs("/usr/lib/rwe/modules"),
//	)
//	result := h.ExecuteModule(ctx, "dbdata", rwe.Settings{
//	    "tableName": "users",
//	    "paging":    rwe.Settings{"limit": 10},
//	})
//	rows := h.ModuleVar("dbdata", "numRows")
//
// Modules are resolved from factories passed with WithModule, then from the process
// registry filled by RegisterModule, then from Go plugins named Module.<name>.so
// found under the module dirs. A plugin exports its constructor, a Factory, as
// Module_<name>.
//
// # Writing a module
//
// Modules embed *ModuleBase (or *OpModuleBase) and describe their settings with a
// Schema. PreExecute validates and merges the caller's settings; unknown keys are
// dropped and values are converted to the declared Kind. It also publishes isData=0,
// and the first Publish flips it to 1:
//
//	var schema = rwe.Schema{
//	    "name": {Default: "world"},
//	}
//
//	type Module struct{ *rwe.ModuleBase }
//
//	func init() {
//	    rwe.RegisterModule("greet", func(h *rwe.Host) rwe.Module {
//	        return &Module{ModuleBase: rwe.NewModuleBase(h, "greet", schema)}
//	    })
//	}
//
//	func (m *Module) Execute(ctx context.Context, s rwe.Settings) any {
//	    m.PreExecute(s)
//	    m.Publish("greeting", "hello "+m.SettingStr("name", ""))
//	    return true
//	}
//
// # Module caching
//
// Caching is on by default. The first ExecuteModule for a name builds the instance and
// keeps it; later calls take it from the cache and call Reset before Execute, so every
// run starts from the schema defaults and the initial variable prefix no matter what
// the previous run was given. WithModuleCaching(false) builds a fresh instance per call
// and ClearModuleCache drops the kept ones.
//
// # Failures
//
// Configuration errors and module failures are fatal: Fail renders the messages
// (through the template engine and the exception template when one is attached,
// otherwise as plain text on the output), calls the exit function with status 1 and,
// when that returns, panics with *Abort. Run recovers the abort and returns it as an
// error, which is how long-running callers keep going after a failed module:
//
//	h := rwe.New(rwe.WithDatabase(mgr), rwe.WithExitFunc(func(int) {}))
//	if _, err := h.Run(ctx, "dbdata", settings); err != nil {
//	    var ab *rwe.Abort
//	    if errors.As(err, &ab) {
//	        log.Error("module failed", err, map[string]interface{}{"module": ab.Module})
//	    }
//	}
//
// # FX Module Integration
//
// FXModule provides a *Host built from Config and whatever database.Manager,
// TemplateEngine, Logger, observability.Observer and tracer.Tracer the container holds.
// Further options are contributed to the "rwe.options" value group:
//
//	app := fx.New(
//	    logger.FXModule,
//	    database.FXModule,
//	    rwe.FXModule,
//	    fx.Provide(fx.Annotate(
//	        func() rwe.Option { return rwe.WithModuleCaching(false) },
//	        fx.ResultTags(`group:"rwe.options"`),
//	    )),
//	)
//
// # Observability
//
// Every execution gets an id. With a tracer attached it runs inside a span named
// "rwe.module <name>", with a logger attached its outcome is logged, and with an
// observer attached one OperationContext (component "rwe", the module as resource) is
// reported when it ends, aborted or not.
//
// # Concurrency model
//
// The host configuration, the module cache and the active-module marker are guarded by
// one mutex, so setters, ExecuteModule and Fail may be called from several goroutines.
// The active module is set for the duration of an ExecuteModule call and restored to
// the previous one afterwards, which keeps nested executions (a module running another
// module) reporting the innermost name. The lock is never held while a module runs.
//
// A cached module instance is not safe for concurrent use: two goroutines executing
// the same name on a caching host share the instance and its settings. Hosts serving
// concurrent callers either turn caching off or give each goroutine its own Host.
// The module registry is safe for concurrent use.
package rwe
