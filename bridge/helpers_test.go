package bridge_test

import (
	"io"
	"log/slog"
	"sync"

	"github.com/reglet-dev/nativebridge/bridge"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingTracer collects the "event" values passed to Trace.
type recordingTracer struct {
	events []string
	mu     sync.Mutex
}

func (r *recordingTracer) Trace(_ string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "event" {
			if ev, ok := args[i+1].(string); ok {
				r.events = append(r.events, ev)
			}
		}
	}
}

func (r *recordingTracer) Enabled() bool { return true }

func (r *recordingTracer) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// fatalRecorder captures configuration errors.
type fatalRecorder struct {
	errs []error
	mu   sync.Mutex
}

func (f *fatalRecorder) handle(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fatalRecorder) Errors() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.errs...)
}

func newTestState(opts ...bridge.Option) (*bridge.State, *fatalRecorder) {
	rec := &fatalRecorder{}
	base := []bridge.Option{
		bridge.WithLogger(discardLogger()),
		bridge.WithFatalHandler(rec.handle),
	}
	return bridge.NewState(append(base, opts...)...), rec
}
