package natives

import (
	"context"
	"fmt"
	"sort"

	"github.com/reglet-dev/nativebridge/bridge"
)

// Table is an immutable set of named native entry points. Lookups need no
// locking once it is built.
type Table struct {
	natives map[string]NativeFunc
	names   []string
}

type tableBuilder struct {
	natives    map[string]NativeFunc
	middleware []Middleware
	errors     []error
}

// Option configures a Table under construction.
type Option func(*tableBuilder)

// NewTable builds a Table. It fails on empty or duplicate names.
//
//	table, err := natives.NewTable(
//	    natives.WithMiddleware(natives.GuardMiddleware(bridge.Default())),
//	    natives.WithNative("checksum", checksum),
//	)
func NewTable(opts ...Option) (*Table, error) {
	b := &tableBuilder{natives: make(map[string]NativeFunc)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.natives))
	wrapped := make(map[string]NativeFunc, len(b.natives))
	for name, fn := range b.natives {
		names = append(names, name)
		for i := len(b.middleware) - 1; i >= 0; i-- {
			fn = b.middleware[i](fn)
		}
		wrapped[name] = fn
	}
	sort.Strings(names)

	return &Table{natives: wrapped, names: names}, nil
}

// Invoke calls the entry point name. Unknown names fail with
// bridge.ErrNoSuchMethod without passing through middleware. A CallContext
// for the same method already in ctx is reused.
func (t *Table) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	fn, ok := t.natives[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bridge.ErrNoSuchMethod, name)
	}
	if cc, ok := CallContextFrom(ctx); !ok || cc.Method() != name {
		ctx = NewCallContext(ctx, name)
	}
	return fn(ctx, payload)
}

// Has reports whether name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.natives[name]
	return ok
}

// Names returns the registered names, sorted.
func (t *Table) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (b *tableBuilder) add(name string, fn NativeFunc) {
	switch {
	case name == "":
		b.errors = append(b.errors, fmt.Errorf("native name cannot be empty"))
	case fn == nil:
		b.errors = append(b.errors, fmt.Errorf("native %q has no implementation", name))
	default:
		if _, exists := b.natives[name]; exists {
			b.errors = append(b.errors, fmt.Errorf("duplicate native name: %q", name))
			return
		}
		b.natives[name] = fn
	}
}

// WithNative registers a raw entry point.
func WithNative(name string, fn NativeFunc) Option {
	return func(b *tableBuilder) {
		b.add(name, fn)
	}
}

// WithTyped registers a typed entry point with JSON payloads.
func WithTyped[Req any, Resp any](name string, fn TypedFunc[Req, Resp]) Option {
	return func(b *tableBuilder) {
		if fn == nil {
			b.add(name, nil)
			return
		}
		b.add(name, NewJSONNative(fn))
	}
}

// WithMiddleware appends middleware. The first one added wraps outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(b *tableBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}
