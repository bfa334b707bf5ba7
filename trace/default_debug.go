//go:build bridge_debug_refs

package trace

// Default returns the tracer compiled into this build. Debug builds forward
// to slog.Default() at debug level.
func Default() Tracer {
	return NewSlog(nil)
}
