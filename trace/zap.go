package trace

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapTracer struct {
	sugar *zap.SugaredLogger
	core  zapcore.Core
}

// NewZap returns a tracer that forwards to a zap logger at debug level.
// A nil logger yields a no-op zap logger.
func NewZap(logger *zap.Logger) Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapTracer{sugar: logger.Sugar(), core: logger.Core()}
}

func (t *zapTracer) Trace(tag string, args ...any) {
	if !t.Enabled() {
		return
	}
	defer func() { _ = recover() }()
	t.sugar.Debugw(tag, resolve(args)...)
}

func (t *zapTracer) Enabled() bool {
	return t.core.Enabled(zapcore.DebugLevel)
}
