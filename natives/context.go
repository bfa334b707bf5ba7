package natives

import (
	"context"
)

// CallContext is the context a native entry point receives from Table.Invoke.
// It carries the method name and request-scoped values set by middleware.
type CallContext interface {
	context.Context

	// Method returns the name of the entry point being invoked.
	Method() string

	// SetValue stores a request-scoped value.
	SetValue(key, value any)

	// GetValue retrieves a value stored with SetValue.
	GetValue(key any) (value any, ok bool)
}

type callContext struct {
	context.Context
	values map[any]any
	method string
}

// NewCallContext wraps ctx for a call to method.
func NewCallContext(ctx context.Context, method string) CallContext {
	return &callContext{Context: ctx, method: method}
}

type callKey struct{}

// Value lets the call context be found again after other layers wrap it.
func (c *callContext) Value(key any) any {
	if key == (callKey{}) {
		return c
	}
	return c.Context.Value(key)
}

func (c *callContext) Method() string {
	return c.method
}

func (c *callContext) SetValue(key, value any) {
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

func (c *callContext) GetValue(key any) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// CallContextFrom finds the CallContext in ctx, even when ctx wraps it.
func CallContextFrom(ctx context.Context) (CallContext, bool) {
	cc, ok := ctx.Value(callKey{}).(CallContext)
	return cc, ok
}

// MethodFrom returns the method name carried by ctx, if any.
func MethodFrom(ctx context.Context) string {
	if cc, ok := CallContextFrom(ctx); ok {
		return cc.Method()
	}
	return ""
}
