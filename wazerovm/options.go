package wazerovm

import (
	"log/slog"

	"github.com/tetratelabs/wazero"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/trace"
)

// DefaultMaxRequestSize limits how many bytes a native reads from guest
// memory per call.
const DefaultMaxRequestSize = 1024 * 1024

// Config holds Runtime configuration.
type Config struct {
	// State is the bridge state natives run under (default bridge.Default()).
	State *bridge.State

	// Logger receives runtime diagnostics (default slog.Default()).
	Logger *slog.Logger

	// Tracer, when set, traces every native call.
	Tracer trace.Tracer

	// RuntimeConfig configures the underlying wazero runtime.
	RuntimeConfig wazero.RuntimeConfig

	// ModuleConfig is used by Instantiate.
	ModuleConfig wazero.ModuleConfig

	// MaxRequestSize limits request payloads read from guest memory.
	MaxRequestSize uint32

	// SuccessStatus is what the runtime reports as a successful load.
	SuccessStatus bridge.Status
}

// Option configures a Runtime.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		State:          bridge.Default(),
		Logger:         slog.Default(),
		RuntimeConfig:  wazero.NewRuntimeConfig(),
		ModuleConfig:   wazero.NewModuleConfig(),
		MaxRequestSize: DefaultMaxRequestSize,
		SuccessStatus:  bridge.Version16,
	}
}

// WithState runs natives under s instead of the process-wide state.
func WithState(s *bridge.State) Option {
	return func(c *Config) {
		if s != nil {
			c.State = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithTracer traces every native call through t.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) {
		c.Tracer = t
	}
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(rc wazero.RuntimeConfig) Option {
	return func(c *Config) {
		c.RuntimeConfig = rc
	}
}

// WithModuleConfig sets the configuration used to instantiate guests.
func WithModuleConfig(mc wazero.ModuleConfig) Option {
	return func(c *Config) {
		c.ModuleConfig = mc
	}
}

// WithMaxRequestSize sets the maximum request size read from guest memory.
func WithMaxRequestSize(size uint32) Option {
	return func(c *Config) {
		c.MaxRequestSize = size
	}
}

// WithSuccessStatus sets the status reported for a successful load.
func WithSuccessStatus(s bridge.Status) Option {
	return func(c *Config) {
		c.SuccessStatus = s
	}
}
