package config

import (
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ReinitReject, cfg.ReinitPolicy)
	assert.Equal(t, TraceBackendSlog, cfg.TraceBackend)
	assert.False(t, cfg.Debug)
}

func TestNew_AppliesOptions(t *testing.T) {
	cfg := New(
		WithDebug(true),
		WithTraceTag("refs"),
		WithTraceBackend(TraceBackendZap),
		WithLogLevel("debug"),
		WithReinitPolicy(ReinitIgnore),
		WithCaptureStack(true),
		WithAbortOnMisuse(true),
	)

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "refs", cfg.TraceTag)
	assert.Equal(t, TraceBackendZap, cfg.TraceBackend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ReinitIgnore, cfg.ReinitPolicy)
	assert.True(t, cfg.CaptureStack)
	assert.True(t, cfg.AbortOnMisuse)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty tag", WithTraceTag("")},
		{"long tag", WithTraceTag("a-tag-that-is-far-too-long-for-a-category")},
		{"unknown backend", WithTraceBackend("logrus")},
		{"unknown level", WithLogLevel("trace")},
		{"unknown policy", WithReinitPolicy("retry")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.opt).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvTraceTag, "fbrefs")
	t.Setenv(EnvReinitPolicy, "ignore")
	t.Setenv(EnvCaptureStack, "1")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "fbrefs", cfg.TraceTag)
	assert.Equal(t, ReinitIgnore, cfg.ReinitPolicy)
	assert.True(t, cfg.CaptureStack)
	assert.False(t, cfg.AbortOnMisuse)
}

func TestFromEnv_InvalidBool(t *testing.T) {
	t.Setenv(EnvAbortOnMisuse, "sometimes")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAbortOnMisuse)
}

func TestFromEnv_InvalidValue(t *testing.T) {
	t.Setenv(EnvLogLevel, "loud")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema should have properties")
	for _, key := range []string{"trace_tag", "trace_backend", "log_level", "reinit_policy", "debug", "capture_stack", "abort_on_misuse"} {
		assert.Contains(t, props, key)
	}

	policy := props["reinit_policy"].(map[string]any)
	assert.ElementsMatch(t, []any{"reject", "ignore"}, policy["enum"])
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, New(WithLogLevel(in)).Level(), in)
	}
}
