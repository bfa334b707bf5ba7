package wazerovm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/natives"
)

// traceTag is the tag native calls are traced under.
const traceTag = "wazerovm"

// Runtime is a bridge.VM backed by a wazero runtime.
type Runtime struct {
	rt      wazero.Runtime
	threads *bridge.ThreadTable
	cfg     Config

	// loadMu serializes load hooks; loading is set while one runs.
	loadMu  sync.Mutex
	loading atomic.Pointer[loadScope]

	mu      sync.Mutex
	modules []api.Module
}

var _ bridge.VM = (*Runtime)(nil)

// New creates a Runtime.
func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.MaxRequestSize == 0 {
		return nil, fmt.Errorf("wazerovm: max request size must be positive")
	}
	return &Runtime{
		rt:      wazero.NewRuntimeWithConfig(ctx, cfg.RuntimeConfig),
		threads: bridge.NewThreadTable(),
		cfg:     cfg,
	}, nil
}

func (r *Runtime) SuccessStatus() bridge.Status {
	return r.cfg.SuccessStatus
}

func (r *Runtime) GetEnv() (bridge.Env, error) {
	env, ok := r.threads.Lookup()
	if !ok {
		return nil, bridge.ErrNotAttached
	}
	return env, nil
}

func (r *Runtime) AttachCurrentThread() (bridge.Env, error) {
	env, _ := r.threads.Attach(func() bridge.Env { return bridge.NewBaseEnv() })
	return env, nil
}

func (r *Runtime) DetachCurrentThread() error {
	return r.threads.Detach()
}

// Attached reports how many goroutines are currently attached, including
// those inside a native call.
func (r *Runtime) Attached() int {
	return r.threads.Len()
}

// Instantiate instantiates a guest module. Its imports must already be
// provided by loaded libraries.
func (r *Runtime) Instantiate(ctx context.Context, wasm []byte) (api.Module, error) {
	mod, err := r.rt.InstantiateWithConfig(ctx, wasm, r.cfg.ModuleConfig)
	if err != nil {
		return nil, fmt.Errorf("wazerovm: instantiate guest: %w", err)
	}
	r.track(mod)
	return mod, nil
}

// Close closes every module the runtime created, then the runtime itself.
// Goroutines still attached are only reported: each one has to detach
// itself.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	mods := r.modules
	r.modules = nil
	r.mu.Unlock()

	var err error
	for i := len(mods) - 1; i >= 0; i-- {
		err = multierr.Append(err, mods[i].Close(ctx))
	}
	if n := r.threads.Len(); n > 0 {
		r.cfg.Logger.WarnContext(ctx, "wazerovm: closing with attached goroutines", "count", n)
	}
	return multierr.Append(err, r.rt.Close(ctx))
}

func (r *Runtime) track(mod api.Module) {
	r.mu.Lock()
	r.modules = append(r.modules, mod)
	r.mu.Unlock()
}

// hostFunc adapts a guarded native to a wazero host function. A native
// failure is raised in the guest as a trap carrying the *bridge.Exception.
func (r *Runtime) hostFunc(module, name string, call natives.NativeFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		packed, exc := r.bound(ctx, mod, stack[0], module, name, call)
		if exc != nil {
			panic(exc)
		}
		stack[0] = packed
	}
}

// bound runs one native call with a fresh Env bound to the calling
// goroutine. The binding is released even if the call panics.
func (r *Runtime) bound(ctx context.Context, mod api.Module, req uint64, module, name string, call natives.NativeFunc) (uint64, *bridge.Exception) {
	env := bridge.NewBaseEnv()
	release := r.threads.Bind(env)
	defer release()
	return r.invoke(ctx, mod, req, env, module, name, call)
}

func (r *Runtime) invoke(ctx context.Context, mod api.Module, req uint64, env bridge.Env, module, name string, call natives.NativeFunc) (uint64, *bridge.Exception) {
	payload, exc := readRequest(mod, req, r.cfg.MaxRequestSize)
	if exc != nil {
		r.cfg.Logger.ErrorContext(ctx, "wazerovm: bad request", "module", module, "function", name, "error", exc)
		return 0, exc
	}

	resp, err := call(natives.NewCallContext(WithModuleName(ctx, module), name), payload)
	if pending := env.ExceptionOccurred(); pending != nil {
		env.ExceptionClear()
		return 0, pending
	}
	if err != nil {
		r.cfg.Logger.ErrorContext(ctx, "wazerovm: native call failed outside the boundary", "module", module, "function", name, "error", err)
		return 0, bridge.Translate(err)
	}

	packed, err := writeResponse(ctx, mod, resp)
	if err != nil {
		r.cfg.Logger.ErrorContext(ctx, "wazerovm: failed to return response", "module", module, "function", name, "error", err)
		return 0, bridge.Translate(err)
	}
	return packed, nil
}
