package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"

	"github.com/reglet-dev/nativebridge/config"
)

// State is the process bridge state: whether the boundary is installed, and
// the VM it was installed for. Production code uses the Default state;
// tests build their own with NewState or call ResetForTests.
type State struct {
	boundary  atomic.Pointer[Boundary]
	vm        atomic.Pointer[vmRef]
	opts      options
	installed atomic.Bool
}

type vmRef struct {
	vm VM
}

// NewState returns an uninitialized State.
func NewState(opts ...Option) *State {
	s := &State{opts: defaultOptions()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Configure applies opts. It must happen before Initialize; afterwards it
// is rejected so that running natives never observe a change.
func (s *State) Configure(opts ...Option) error {
	if s.installed.Load() {
		return &ConfigError{Op: "configure", Err: ErrAlreadyInitialized}
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return nil
}

// Initialized reports whether the boundary has been installed.
func (s *State) Initialized() bool {
	return s.installed.Load()
}

// Boundary returns the installed boundary, or nil.
func (s *State) Boundary() *Boundary {
	return s.boundary.Load()
}

// VM returns the VM the boundary was installed for, or nil.
func (s *State) VM() VM {
	if ref := s.vm.Load(); ref != nil {
		return ref.vm
	}
	return nil
}

// ResetForTests returns the state to uninitialized. Never call it while
// natives may be running.
func (s *State) ResetForTests() {
	s.boundary.Store(nil)
	s.vm.Store(nil)
	s.installed.Store(false)
}

// Initialize installs the error boundary and runs fn inside it. It must be
// the whole body of the VM's load hook and runs at most once per State.
//
// It returns vm.SuccessStatus() when fn succeeds. When fn returns an error
// or panics, the failure is left pending on the load thread's Env as an
// *Exception and StatusErr is returned; the boundary stays installed.
// Initialize itself never panics.
func (s *State) Initialize(vm VM, fn func() error) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			s.fatal(&ConfigError{Op: "initialize", Err: fmt.Errorf("unexpected panic: %v", r)})
			status = StatusErr
		}
	}()

	if vm == nil {
		s.fatal(&ConfigError{Op: "initialize", Err: ErrNilVM})
		return StatusErr
	}
	if s.installed.Load() {
		return s.reinitialize(vm)
	}

	env, err := vm.GetEnv()
	if err != nil {
		s.fatal(&ConfigError{Op: "initialize", Err: fmt.Errorf("load hook thread: %w", err)})
		return StatusErr
	}

	b := &Boundary{
		translate:    s.opts.translate,
		tracer:       s.opts.tracer,
		tag:          s.opts.tag,
		captureStack: s.opts.captureStack,
	}
	if !s.installed.CompareAndSwap(false, true) {
		return s.reinitialize(vm)
	}
	s.boundary.Store(b)
	s.vm.Store(&vmRef{vm: vm})
	s.opts.tracer.Trace(s.opts.tag, "event", "initialize")

	if b.Run(env, fn) {
		s.opts.logger.Error("bridge: initialization callback failed", "error", env.ExceptionOccurred())
		return StatusErr
	}
	return vm.SuccessStatus()
}

func (s *State) reinitialize(vm VM) Status {
	err := &ConfigError{Op: "initialize", Err: ErrAlreadyInitialized}
	if s.opts.reinit == config.ReinitIgnore {
		s.opts.logger.Warn("bridge: ignoring repeated initialization")
		return vm.SuccessStatus()
	}
	if env, envErr := vm.GetEnv(); envErr == nil {
		env.Throw(s.opts.translate(err))
	}
	s.fatal(err)
	return StatusErr
}

// Current returns the Env of the calling goroutine.
//
// An Env bound into ctx with WithEnv wins; otherwise the VM is asked for
// the goroutine's attachment. Misuse is reported as an error, never as a
// stale handle: ErrWrongThread when ctx carries another goroutine's Env,
// ErrNotAttached for an unattached goroutine and ErrNotInitialized when no
// VM is known yet.
func (s *State) Current(ctx context.Context) (Env, error) {
	if env, ok := envFromContext(ctx); ok {
		if env.Owner() != goid.Get() {
			return nil, s.misuse(ErrWrongThread)
		}
		return env, nil
	}
	ref := s.vm.Load()
	if ref == nil {
		return nil, s.misuse(ErrNotInitialized)
	}
	env, err := ref.vm.GetEnv()
	if err != nil {
		return nil, s.misuse(ErrNotAttached)
	}
	return env, nil
}

// Guard runs a native entry point inside the installed boundary. It returns
// the pending *Exception when fn failed (the exception also stays pending
// on the Env for the VM to raise), or a *ConfigError when the bridge was
// never initialized or the goroutine has no Env.
func (s *State) Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	b := s.boundary.Load()
	if b == nil {
		err := &ConfigError{Op: "guard", Err: ErrNotInitialized}
		s.fatal(err)
		return err
	}
	env, err := s.Current(ctx)
	if err != nil {
		return &ConfigError{Op: "guard", Err: err}
	}
	if b.Run(env, func() error { return fn(WithEnv(ctx, env)) }) {
		if exc := env.ExceptionOccurred(); exc != nil {
			return exc
		}
	}
	return nil
}

func (s *State) misuse(err error) error {
	s.opts.tracer.Trace(s.opts.tag, "event", "misuse", "error", err.Error())
	if s.opts.debug {
		s.opts.logger.Error("bridge: call context misuse", "error", err)
	}
	return err
}

func (s *State) fatal(err error) {
	s.opts.tracer.Trace(s.opts.tag, "event", "fatal", "error", err.Error())
	if s.opts.onFatal != nil {
		s.opts.onFatal(err)
		return
	}
	s.opts.logger.Error("bridge: fatal configuration error", "error", err)
}

var defaultState = NewState()

// Default returns the process-wide State.
func Default() *State {
	return defaultState
}

// Configure configures the process-wide State.
func Configure(opts ...Option) error {
	return defaultState.Configure(opts...)
}

// Initialize initializes the process-wide State. See State.Initialize.
func Initialize(vm VM, fn func() error) Status {
	return defaultState.Initialize(vm, fn)
}

// Current returns the calling goroutine's Env from the process-wide State.
func Current(ctx context.Context) (Env, error) {
	return defaultState.Current(ctx)
}

// Guard runs fn inside the process-wide boundary.
func Guard(ctx context.Context, fn func(ctx context.Context) error) error {
	return defaultState.Guard(ctx, fn)
}

// ResetForTests resets the process-wide State.
func ResetForTests() {
	defaultState.ResetForTests()
}
