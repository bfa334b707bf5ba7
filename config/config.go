// Package config holds the settings that shape the bridge's ambient
// behaviour: diagnostics, misuse handling and logging.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

// ReinitPolicy decides what a second Initialize call does.
type ReinitPolicy string

const (
	// ReinitReject reports a fatal configuration error and returns the
	// failure status.
	ReinitReject ReinitPolicy = "reject"
	// ReinitIgnore logs a warning and returns the success status without
	// touching the installed boundary.
	ReinitIgnore ReinitPolicy = "ignore"
)

// TraceBackend selects the logger the diagnostic hook forwards to.
type TraceBackend string

const (
	TraceBackendSlog TraceBackend = "slog"
	TraceBackendZap  TraceBackend = "zap"
)

// Env variable names read by FromEnv.
const (
	EnvDebug         = "NATIVEBRIDGE_DEBUG"
	EnvTraceTag      = "NATIVEBRIDGE_TRACE_TAG"
	EnvTraceBackend  = "NATIVEBRIDGE_TRACE_BACKEND"
	EnvLogLevel      = "NATIVEBRIDGE_LOG_LEVEL"
	EnvReinitPolicy  = "NATIVEBRIDGE_REINIT_POLICY"
	EnvCaptureStack  = "NATIVEBRIDGE_CAPTURE_STACK"
	EnvAbortOnMisuse = "NATIVEBRIDGE_ABORT_ON_MISUSE"
)

// validate is shared; building a validator is expensive.
var validate = validator.New()

// Config is the bridge configuration.
type Config struct {
	// TraceTag is the categorical tag attached to diagnostic records.
	TraceTag string `json:"trace_tag" validate:"required,max=32" jsonschema:"default=bridge_ref,maxLength=32"`

	// TraceBackend is the logger diagnostics forward to when Debug is set.
	TraceBackend TraceBackend `json:"trace_backend" validate:"oneof=slog zap" jsonschema:"enum=slog,enum=zap,default=slog"`

	// LogLevel is the minimum level of the bridge's own logger.
	LogLevel string `json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// ReinitPolicy decides what a second Initialize call does.
	ReinitPolicy ReinitPolicy `json:"reinit_policy" validate:"oneof=reject ignore" jsonschema:"enum=reject,enum=ignore,default=reject"`

	// Debug enables forwarding diagnostics and defensive misuse reporting.
	Debug bool `json:"debug"`

	// CaptureStack records the Go stack on translated exceptions.
	CaptureStack bool `json:"capture_stack"`

	// AbortOnMisuse exits the process on configuration errors instead of
	// logging them.
	AbortOnMisuse bool `json:"abort_on_misuse"`
}

// Default returns the release configuration.
func Default() Config {
	return Config{
		TraceTag:     "bridge_ref",
		TraceBackend: TraceBackendSlog,
		LogLevel:     "info",
		ReinitPolicy: ReinitReject,
	}
}

// Option is a functional option for building a Config.
type Option func(*Config)

// WithDebug toggles debug diagnostics.
func WithDebug(enabled bool) Option {
	return func(c *Config) {
		c.Debug = enabled
	}
}

// WithTraceTag sets the diagnostic tag.
func WithTraceTag(tag string) Option {
	return func(c *Config) {
		c.TraceTag = tag
	}
}

// WithTraceBackend sets the diagnostic backend.
func WithTraceBackend(b TraceBackend) Option {
	return func(c *Config) {
		c.TraceBackend = b
	}
}

// WithLogLevel sets the bridge logger level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// WithReinitPolicy sets the second-Initialize policy.
func WithReinitPolicy(p ReinitPolicy) Option {
	return func(c *Config) {
		c.ReinitPolicy = p
	}
}

// WithCaptureStack toggles stack capture on translated exceptions.
func WithCaptureStack(enabled bool) Option {
	return func(c *Config) {
		c.CaptureStack = enabled
	}
}

// WithAbortOnMisuse makes configuration errors exit the process.
func WithAbortOnMisuse(enabled bool) Option {
	return func(c *Config) {
		c.AbortOnMisuse = enabled
	}
}

// New builds a Config from the defaults and opts.
func New(opts ...Option) Config {
	cfg := Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// FromEnv overlays NATIVEBRIDGE_* environment variables on the defaults and
// validates the result.
func FromEnv(opts ...Option) (Config, error) {
	cfg := New(opts...)

	if v, ok := os.LookupEnv(EnvTraceTag); ok {
		cfg.TraceTag = v
	}
	if v, ok := os.LookupEnv(EnvTraceBackend); ok {
		cfg.TraceBackend = TraceBackend(v)
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		cfg.LogLevel = v
	}
	if v, ok := os.LookupEnv(EnvReinitPolicy); ok {
		cfg.ReinitPolicy = ReinitPolicy(v)
	}
	for name, dst := range map[string]*bool{
		EnvDebug:         &cfg.Debug,
		EnvCaptureStack:  &cfg.CaptureStack,
		EnvAbortOnMisuse: &cfg.AbortOnMisuse,
	} {
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s=%q: %w", name, v, err)
		}
		*dst = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Schema returns the JSON Schema describing Config.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Config{})
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config schema: %w", err)
	}
	return data, nil
}

// Level returns LogLevel as a slog.Level. Unknown values mean info.
func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
