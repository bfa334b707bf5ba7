package trace

import (
	"context"
	"log/slog"
)

// LogValue makes Lazy resolve only when a slog handler formats the record.
func (l Lazy) LogValue() slog.Value {
	return slog.AnyValue(l())
}

type slogTracer struct {
	logger *slog.Logger
	level  slog.Level
}

// SlogOption configures a slog-backed tracer.
type SlogOption func(*slogTracer)

// WithLevel sets the level trace records are emitted at (default: debug).
func WithLevel(level slog.Level) SlogOption {
	return func(t *slogTracer) {
		t.level = level
	}
}

// NewSlog returns a tracer that forwards to logger. A nil logger means
// slog.Default().
func NewSlog(logger *slog.Logger, opts ...SlogOption) Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	t := &slogTracer{logger: logger, level: slog.LevelDebug}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *slogTracer) Trace(tag string, args ...any) {
	defer func() { _ = recover() }()
	t.logger.Log(context.Background(), t.level, tag, args...)
}

func (t *slogTracer) Enabled() bool {
	return t.logger.Enabled(context.Background(), t.level)
}
