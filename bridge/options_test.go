package bridge

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/reglet-dev/nativebridge/config"
	"github.com/reglet-dev/nativebridge/trace"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func configured(logger *slog.Logger, cfg config.Config, before ...Option) options {
	o := defaultOptions()
	WithLogger(logger)(&o)
	for _, opt := range before {
		opt(&o)
	}
	WithConfig(cfg)(&o)
	return o
}

func TestWithConfig_MapsFields(t *testing.T) {
	logger, _ := bufferLogger()
	cfg := config.New(
		config.WithTraceTag("refs"),
		config.WithReinitPolicy(config.ReinitIgnore),
		config.WithCaptureStack(true),
	)

	o := configured(logger, cfg)

	assert.Equal(t, "refs", o.tag)
	assert.Equal(t, config.ReinitIgnore, o.reinit)
	assert.True(t, o.captureStack)
	assert.False(t, o.debug)
	assert.Nil(t, o.onFatal)
}

func TestWithConfig_ReleaseSelectsNop(t *testing.T) {
	logger, _ := bufferLogger()

	o := configured(logger, config.New(config.WithDebug(false)), WithTracer(trace.NewSlog(logger)))

	assert.Equal(t, trace.Nop(), o.tracer)
}

func TestWithConfig_LogLevel(t *testing.T) {
	logger, buf := bufferLogger()

	o := configured(logger, config.New(config.WithLogLevel("warn")))
	o.logger.Info("hidden")
	o.logger.With("k", "v").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithConfig_TraceBackend(t *testing.T) {
	tests := []struct {
		name     string
		backend  config.TraceBackend
		zapErr   error
		wantSlog bool
		wantZap  bool
		wantWarn bool
	}{
		{name: "slog", backend: config.TraceBackendSlog, wantSlog: true},
		{name: "zap", backend: config.TraceBackendZap, wantZap: true},
		{name: "zap unavailable", backend: config.TraceBackendZap, zapErr: errors.New("no sink"), wantSlog: true, wantWarn: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			orig := newZapLogger
			t.Cleanup(func() { newZapLogger = orig })
			newZapLogger = func() (*zap.Logger, error) {
				if tt.zapErr != nil {
					return nil, tt.zapErr
				}
				return zap.New(core), nil
			}

			// The tracer must see debug records even when the bridge's
			// own logger is filtered to info.
			logger, buf := bufferLogger()
			o := configured(logger, config.New(
				config.WithDebug(true),
				config.WithTraceBackend(tt.backend),
				config.WithLogLevel("info"),
			))
			require.True(t, o.tracer.Enabled())
			o.tracer.Trace("bridge_ref", "event", "traced_event")

			assert.Equal(t, tt.wantSlog, bytes.Contains(buf.Bytes(), []byte("event=traced_event")))
			if tt.wantZap {
				assert.Equal(t, 1, logs.Len())
			} else {
				assert.Zero(t, logs.Len())
			}
			assert.Equal(t, tt.wantWarn, bytes.Contains(buf.Bytes(), []byte("zap trace backend unavailable")))
		})
	}
}

func TestWithConfig_AbortOnMisuse(t *testing.T) {
	var code int
	orig := exit
	t.Cleanup(func() { exit = orig })
	exit = func(c int) { code = c }

	logger, buf := bufferLogger()
	o := configured(logger, config.New(config.WithAbortOnMisuse(true)), WithFatalHandler(func(error) {
		t.Fatal("the configured handler replaces earlier ones")
	}))
	require.NotNil(t, o.onFatal)

	o.onFatal(&ConfigError{Op: "initialize", Err: ErrAlreadyInitialized})

	assert.Equal(t, misuseExitCode, code)
	assert.Contains(t, buf.String(), "aborting on fatal configuration error")
}

func TestWithConfig_StateReinitIgnore(t *testing.T) {
	logger, _ := bufferLogger()
	s := NewState(WithLogger(logger), WithConfig(config.New(config.WithReinitPolicy(config.ReinitIgnore))))
	vm := &stubVM{env: NewBaseEnv()}

	require.Equal(t, Version16, s.Initialize(vm, nil))
	assert.Equal(t, Version16, s.Initialize(vm, func() error {
		t.Fatal("ignored reinitialization must not run the callback")
		return nil
	}))
}

type stubVM struct {
	env Env
}

func (v *stubVM) SuccessStatus() Status { return Version16 }
func (v *stubVM) GetEnv() (Env, error) { return v.env, nil }
func (v *stubVM) AttachCurrentThread() (Env, error) { return v.env, nil }
func (v *stubVM) DetachCurrentThread() error { return nil }
