package wazerovm

import (
	"context"
)

type contextKey struct {
	name string
}

var moduleNameKey = &contextKey{name: "native_module"}

// WithModuleName records the native module a call was made through.
func WithModuleName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, moduleNameKey, name)
}

// ModuleNameFromContext returns the native module of the current call.
func ModuleNameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(moduleNameKey).(string)
	return name, ok
}
