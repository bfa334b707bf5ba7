//go:build !bridge_debug_refs

package trace

// Default returns the tracer compiled into this build. Release builds trace
// nothing; build with -tags bridge_debug_refs to forward reference
// diagnostics to slog.
func Default() Tracer {
	return Nop()
}
