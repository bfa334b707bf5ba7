// Package trace provides the diagnostic hook used by the bridge and by the
// reference-management code built on top of it.
//
// A Tracer is always present. Release builds get a no-op implementation and
// debug builds get one that forwards to a logger, so call sites never change
// with the diagnostic mode.
package trace

// DefaultTag is the categorical tag used for reference diagnostics.
const DefaultTag = "bridge_ref"

// Tracer is a variadic diagnostic sink. Implementations must never panic and
// never return errors to the caller.
type Tracer interface {
	// Trace records a diagnostic under tag. args are slog-style key/value pairs.
	Trace(tag string, args ...any)

	// Enabled reports whether Trace does anything. Callers may use it to skip
	// building expensive arguments.
	Enabled() bool
}

// Lazy defers construction of a trace argument until a forwarding tracer
// actually emits it. The no-op tracer never calls it.
type Lazy func() any

type nop struct{}

func (nop) Trace(string, ...any) {}

func (nop) Enabled() bool { return false }

// Nop returns a tracer that discards everything.
func Nop() Tracer {
	return nop{}
}

// resolve evaluates Lazy arguments in place. It returns a copy so the
// caller's slice is left untouched.
func resolve(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if l, ok := a.(Lazy); ok {
			out[i] = l()
			continue
		}
		out[i] = a
	}
	return out
}
