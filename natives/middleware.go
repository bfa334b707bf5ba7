package natives

import (
	"context"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/trace"
)

// Middleware wraps a NativeFunc. The first middleware added is the
// outermost.
type Middleware func(next NativeFunc) NativeFunc

// GuardMiddleware runs every entry point inside the boundary installed on
// state. A failure comes back as the pending *bridge.Exception; the
// response is dropped.
func GuardMiddleware(state *bridge.State) Middleware {
	return func(next NativeFunc) NativeFunc {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			var resp []byte
			err := state.Guard(ctx, func(ctx context.Context) error {
				var err error
				resp, err = next(ctx, payload)
				return err
			})
			if err != nil {
				return nil, err
			}
			return resp, nil
		}
	}
}

// TraceMiddleware reports entry and exit of every call to tracer.
func TraceMiddleware(tracer trace.Tracer, tag string) Middleware {
	return func(next NativeFunc) NativeFunc {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			method := MethodFrom(ctx)
			tracer.Trace(tag, "event", "enter", "method", method, "bytes", len(payload))
			resp, err := next(ctx, payload)
			if err != nil {
				tracer.Trace(tag, "event", "fail", "method", method, "error", err.Error())
			} else {
				tracer.Trace(tag, "event", "exit", "method", method, "bytes", len(resp))
			}
			return resp, err
		}
	}
}
