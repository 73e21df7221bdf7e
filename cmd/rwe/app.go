package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/logger"
	"github.com/aalemi-dev/rwe/metrics"
	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tplengine"
	"github.com/aalemi-dev/rwe/tracer"

	_ "github.com/aalemi-dev/rwe/mariadb"
	_ "github.com/aalemi-dev/rwe/modules/dbdata"
	_ "github.com/aalemi-dev/rwe/modules/dummy"
	_ "github.com/aalemi-dev/rwe/modules/kernelinfo"
	_ "github.com/aalemi-dev/rwe/postgres"
	_ "github.com/aalemi-dev/rwe/sqlite"
)

// traceParentEnv carries the W3C trace context of the process that started rwe.
const traceParentEnv = "TRACEPARENT"

// runtime holds what commands need from the running application.
type runtime struct {
	Host     *rwe.Host
	Recorder *tplengine.Recorder
	Tracer   tracer.Tracer
}

func newApp(cfg Config, out io.Writer, rt *runtime) *fx.App {
	options := []fx.Option{
		fx.Supply(cfg.Log, cfg.Metrics, cfg.Tracer, cfg.Host),
		logger.FXModule,
		metrics.FXModule,
		tracer.FXModule,
		rwe.FXModule,
		fx.WithLogger(func(l *logger.LoggerClient) fxevent.Logger {
			zl := &fxevent.ZapLogger{Logger: l.Zap.Named("fx")}
			zl.UseLogLevel(zapcore.DebugLevel)
			return zl
		}),
		fx.Provide(
			func(l logger.Logger) database.Logger { return l },
			func(l logger.Logger) rwe.Logger { return l },
			func(l *logger.LoggerClient) metrics.Logger { return l },
			func() *tplengine.Recorder { return tplengine.NewRecorder(out) },
			func(r *tplengine.Recorder) rwe.TemplateEngine { return r },
			fx.Annotate(
				func() rwe.Option { return rwe.WithOutput(out) },
				fx.ResultTags(`group:"rwe.options"`),
			),
			fx.Annotate(
				// Aborts surface from Host.Run as errors.
				func() rwe.Option { return rwe.WithExitFunc(func(int) {}) },
				fx.ResultTags(`group:"rwe.options"`),
			),
		),
		fx.Populate(&rt.Host, &rt.Recorder, &rt.Tracer),
	}
	if cfg.Database.DSN != "" {
		options = append(options, fx.Supply(cfg.Database), database.FXModule)
	}
	return fx.New(options...)
}

// withRuntime starts the application, runs fn and stops the application again.
func withRuntime(ctx context.Context, cfg Config, out io.Writer, fn func(context.Context, *runtime) error) error {
	var rt runtime
	app := newApp(cfg, out, &rt)
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	err := fn(traceContext(ctx, rt.Tracer), &rt)

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
		err = fmt.Errorf("failed to stop: %w", stopErr)
	}
	return err
}

func traceContext(ctx context.Context, t tracer.Tracer) context.Context {
	parent := os.Getenv(traceParentEnv)
	if parent == "" || t == nil {
		return ctx
	}
	return t.SetCarrierOnContext(ctx, map[string]string{"traceparent": parent})
}
