package wazerovm

import (
	"context"
	"errors"
	"fmt"

	"github.com/petermattis/goid"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"

	"github.com/reglet-dev/nativebridge/bridge"
	"github.com/reglet-dev/nativebridge/natives"
)

// ErrNotLoading is returned by RegisterNatives outside a load hook.
var ErrNotLoading = errors.New("wazerovm: natives can only be registered from a load hook")

// Library is a native library the runtime loads.
type Library struct {
	// Name identifies the library in errors and logs.
	Name string

	// OnLoad is the library's load hook. Its body is a call to
	// Initialize on State.
	OnLoad func(vm bridge.VM) bridge.Status

	// State guards the library's natives. Defaults to the runtime's state.
	State *bridge.State
}

type loadScope struct {
	owner  int64
	tables map[string]*natives.Table
	order  []string
}

// LoadLibrary runs lib's load hook on the calling goroutine, attached to
// the runtime for the duration of the hook. When the hook reports success,
// every native module it registered is instantiated. When it does not, the
// exception it left pending is returned.
func (r *Runtime) LoadLibrary(ctx context.Context, lib Library) (err error) {
	if lib.OnLoad == nil {
		return fmt.Errorf("wazerovm: library %q has no load hook", lib.Name)
	}
	state := lib.State
	if state == nil {
		state = r.cfg.State
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()

	env, detach, err := bridge.Attach(r)
	if err != nil {
		return fmt.Errorf("wazerovm: load %q: %w", lib.Name, err)
	}
	defer func() {
		if derr := detach(); derr != nil {
			err = multierr.Append(err, fmt.Errorf("wazerovm: load %q: detach: %w", lib.Name, derr))
		}
	}()

	scope := &loadScope{
		owner:  goid.Get(),
		tables: make(map[string]*natives.Table),
	}
	r.loading.Store(scope)
	status, err := r.runHook(lib)
	if err != nil {
		env.ExceptionClear()
		return fmt.Errorf("wazerovm: load %q: %w", lib.Name, err)
	}

	exc := env.ExceptionOccurred()
	env.ExceptionClear()
	if exc != nil {
		return fmt.Errorf("wazerovm: load %q: %w", lib.Name, exc)
	}
	if status != r.cfg.SuccessStatus {
		return fmt.Errorf("wazerovm: load %q: load hook returned %s", lib.Name, status)
	}

	for _, module := range scope.order {
		if err := r.instantiateNatives(ctx, module, state, scope.tables[module]); err != nil {
			return fmt.Errorf("wazerovm: load %q: %w", lib.Name, err)
		}
	}
	r.cfg.Logger.InfoContext(ctx, "wazerovm: library loaded", "library", lib.Name, "modules", scope.order)
	return nil
}

// runHook runs the load hook with RegisterNatives enabled. A hook is meant
// to be a single bridge.Initialize call, which never panics, but a hook
// written by hand may.
func (r *Runtime) runHook(lib Library) (status bridge.Status, err error) {
	defer func() {
		r.loading.Store(nil)
		if rec := recover(); rec != nil {
			status, err = bridge.StatusErr, fmt.Errorf("load hook panicked: %v", rec)
		}
	}()
	return lib.OnLoad(r), nil
}

// RegisterNatives exposes table to guests as the host module named module.
// It must be called from the load hook LoadLibrary is running; the module
// is instantiated once the hook succeeds.
func (r *Runtime) RegisterNatives(module string, table *natives.Table) error {
	scope := r.loading.Load()
	if scope == nil || scope.owner != goid.Get() {
		return ErrNotLoading
	}
	if module == "" {
		return fmt.Errorf("wazerovm: native module name cannot be empty")
	}
	if table == nil {
		return fmt.Errorf("wazerovm: native module %q has no table", module)
	}
	if _, exists := scope.tables[module]; exists {
		return fmt.Errorf("wazerovm: duplicate native module: %q", module)
	}
	scope.tables[module] = table
	scope.order = append(scope.order, module)
	return nil
}

// instantiateNatives builds a host module exporting every native in table
// as an (i64) -> i64 function.
func (r *Runtime) instantiateNatives(ctx context.Context, module string, state *bridge.State, table *natives.Table) error {
	guard := natives.GuardMiddleware(state)
	builder := r.rt.NewHostModuleBuilder(module)

	for _, name := range table.Names() {
		funcName := name // capture for closure
		call := guard(func(ctx context.Context, payload []byte) ([]byte, error) {
			return table.Invoke(ctx, funcName, payload)
		})
		if r.cfg.Tracer != nil {
			call = natives.TraceMiddleware(r.cfg.Tracer, traceTag)(call)
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(r.hostFunc(module, funcName, call),
				[]api.ValueType{api.ValueTypeI64}, []api.ValueType{api.ValueTypeI64}).
			Export(funcName)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate native module %q: %w", module, err)
	}
	r.track(mod)
	return nil
}
