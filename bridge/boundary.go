package bridge

import (
	"runtime/debug"

	"github.com/reglet-dev/nativebridge/trace"
)

// Boundary is the top-level error boundary around native code. Anything a
// native function raises, error or panic, ends up as the pending exception
// of the caller's Env.
type Boundary struct {
	translate    Translator
	tracer       trace.Tracer
	tag          string
	captureStack bool
}

// Run executes fn inside the boundary and reports whether fn raised an
// exception, either by failing or by throwing on env directly. An exception
// already pending before fn ran does not count. It never panics.
func (b *Boundary) Run(env Env, fn func() error) (thrown bool) {
	stale := env.ExceptionOccurred()
	defer func() {
		if r := recover(); r != nil {
			exc := fromPanic(r, b.translate, b.captureStack)
			b.tracer.Trace(b.tag, "event", "panic", "kind", string(exc.Kind))
			env.Throw(exc)
			thrown = true
		}
	}()

	if fn != nil {
		if err := fn(); err != nil {
			exc := b.translate(err)
			if exc == nil {
				exc = Translate(err)
			}
			if b.captureStack && exc.Stack == "" {
				exc = exc.withStack(string(debug.Stack()))
			}
			b.tracer.Trace(b.tag, "event", "throw", "kind", string(exc.Kind))
			env.Throw(exc)
			return true
		}
	}
	pending := env.ExceptionOccurred()
	return pending != nil && pending != stale
}
