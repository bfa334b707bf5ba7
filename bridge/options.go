package bridge

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/zap"

	"github.com/reglet-dev/nativebridge/config"
	"github.com/reglet-dev/nativebridge/trace"
)

// misuseExitCode is the status the process exits with when AbortOnMisuse is
// configured and a configuration error occurs.
const misuseExitCode = 134

type options struct {
	logger       *slog.Logger
	tracer       trace.Tracer
	translate    Translator
	onFatal      func(error)
	tag          string
	reinit       config.ReinitPolicy
	captureStack bool
	debug        bool
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		tracer:    trace.Default(),
		translate: Translate,
		tag:       trace.DefaultTag,
		reinit:    config.ReinitReject,
	}
}

// Option configures a State.
type Option func(*options)

// WithLogger sets the logger for fatal diagnostics and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer injects the diagnostic hook.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithTraceTag sets the tag used for the bridge's own diagnostics.
func WithTraceTag(tag string) Option {
	return func(o *options) {
		o.tag = tag
	}
}

// WithTranslator replaces the error-to-exception translation.
func WithTranslator(t Translator) Option {
	return func(o *options) {
		if t != nil {
			o.translate = t
		}
	}
}

// WithReinitPolicy chooses what a second Initialize does.
func WithReinitPolicy(p config.ReinitPolicy) Option {
	return func(o *options) {
		o.reinit = p
	}
}

// WithFatalHandler receives configuration errors instead of the logger.
func WithFatalHandler(fn func(error)) Option {
	return func(o *options) {
		o.onFatal = fn
	}
}

// WithCaptureStack records the Go stack on translated exceptions.
func WithCaptureStack(enabled bool) Option {
	return func(o *options) {
		o.captureStack = enabled
	}
}

// WithDebug enables defensive misuse reporting from Current.
func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// WithConfig applies a validated config.Config. It replaces the tracer
// and, with AbortOnMisuse, the fatal handler, so options that should win
// over the config go after it. The logger is filtered to cfg.LogLevel; the
// tracer keeps the unfiltered logger.
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		base := o.logger
		o.logger = slog.New(&levelHandler{Handler: base.Handler(), level: cfg.Level()})
		o.tag = cfg.TraceTag
		o.reinit = cfg.ReinitPolicy
		o.captureStack = cfg.CaptureStack
		o.debug = cfg.Debug

		if cfg.Debug {
			o.tracer = newConfiguredTracer(cfg.TraceBackend, base)
		} else {
			o.tracer = trace.Nop()
		}
		if cfg.AbortOnMisuse {
			logger := o.logger
			o.onFatal = func(err error) {
				logger.Error("bridge: aborting on fatal configuration error", "error", err)
				exit(misuseExitCode)
			}
		}
	}
}

// Replaced in tests.
var (
	exit         = os.Exit
	newZapLogger = func() (*zap.Logger, error) { return zap.NewDevelopment() }
)

func newConfiguredTracer(backend config.TraceBackend, logger *slog.Logger) trace.Tracer {
	if backend == config.TraceBackendZap {
		zl, err := newZapLogger()
		if err != nil {
			logger.Warn("bridge: zap trace backend unavailable, using slog", "error", err)
			return trace.NewSlog(logger)
		}
		return trace.NewZap(zl)
	}
	return trace.NewSlog(logger)
}

// levelHandler drops records below level before they reach Handler.
type levelHandler struct {
	slog.Handler
	level slog.Level
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
