package natives

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/bridgetest"
)

func TestMiddlewareOrder_FIFO(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next NativeFunc) NativeFunc {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				order = append(order, name+"-before")
				resp, err := next(ctx, payload)
				order = append(order, name+"-after")
				return resp, err
			}
		}
	}

	table, err := NewTable(
		WithMiddleware(mark("mw1"), mark("mw2")),
		WithNative("n", func(context.Context, []byte) ([]byte, error) {
			order = append(order, "native")
			return nil, nil
		}),
	)
	require.NoError(t, err)

	_, err = table.Invoke(context.Background(), "n", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mw1-before", "mw2-before", "native", "mw2-after", "mw1-after"}, order)
}

func guardedTable(t *testing.T, natives ...Option) (*Table, *bridgetest.VM) {
	t.Helper()
	state := bridge.NewState(bridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	vm := bridgetest.NewVM()
	status, exc := vm.Load(func(v bridge.VM) bridge.Status {
		return state.Initialize(v, nil)
	})
	require.Equal(t, bridge.Version16, status)
	require.Nil(t, exc)

	opts := append([]Option{WithMiddleware(GuardMiddleware(state))}, natives...)
	table, err := NewTable(opts...)
	require.NoError(t, err)
	return table, vm
}

func TestGuardMiddleware_PanicBecomesPendingException(t *testing.T) {
	table, vm := guardedTable(t, WithNative("explode", func(context.Context, []byte) ([]byte, error) {
		panic("native crash")
	}))

	var invokeErr error
	exc := vm.Call(context.Background(), func(ctx context.Context) {
		require.NotPanics(t, func() {
			_, invokeErr = table.Invoke(ctx, "explode", nil)
		})
	})

	bridgetest.RequireException(t, exc, bridge.KindUnknown)
	assert.Contains(t, exc.Message, "native crash")
	assert.ErrorAs(t, invokeErr, new(*bridge.Exception))
}

func TestGuardMiddleware_ErrorBecomesPendingException(t *testing.T) {
	table, vm := guardedTable(t, WithNative("fail", func(context.Context, []byte) ([]byte, error) {
		return []byte("partial"), errors.New("bad input")
	}))

	var resp []byte
	exc := vm.Call(context.Background(), func(ctx context.Context) {
		resp, _ = table.Invoke(ctx, "fail", nil)
	})

	bridgetest.RequireException(t, exc, bridge.KindRuntime)
	assert.Nil(t, resp, "response is dropped when an exception is pending")
}

func TestGuardMiddleware_Success(t *testing.T) {
	table, vm := guardedTable(t, WithNative("echo", echo))

	var resp []byte
	var err error
	exc := vm.Call(context.Background(), func(ctx context.Context) {
		resp, err = table.Invoke(ctx, "echo", []byte("ok"))
	})

	assert.Nil(t, exc)
	require.NoError(t, err)
	assert.Equal(t, "echo:ok", string(resp))
}

func TestGuardMiddleware_MethodVisibleInsideBoundary(t *testing.T) {
	var method string
	table, vm := guardedTable(t, WithNative("whoami", func(ctx context.Context, _ []byte) ([]byte, error) {
		method = MethodFrom(ctx)
		return nil, nil
	}))

	vm.Call(context.Background(), func(ctx context.Context) {
		_, _ = table.Invoke(ctx, "whoami", nil)
	})
	assert.Equal(t, "whoami", method)
}

type eventTracer struct {
	events []string
}

func (e *eventTracer) Trace(_ string, args ...any) {
	for i := 0; i+1 < len(args); i += 2 {
		if args[i] == "event" {
			e.events = append(e.events, args[i+1].(string))
		}
	}
}

func (e *eventTracer) Enabled() bool { return true }

func TestTraceMiddleware(t *testing.T) {
	tr := &eventTracer{}
	table, err := NewTable(
		WithMiddleware(TraceMiddleware(tr, "natives")),
		WithNative("ok", echo),
		WithNative("bad", func(context.Context, []byte) ([]byte, error) { return nil, errors.New("x") }),
	)
	require.NoError(t, err)

	_, _ = table.Invoke(context.Background(), "ok", nil)
	_, _ = table.Invoke(context.Background(), "bad", nil)

	assert.Equal(t, []string{"enter", "exit", "enter", "fail"}, tr.events)
}
