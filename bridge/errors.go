package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInitialized is reported when Initialize runs a second time.
	ErrAlreadyInitialized = errors.New("bridge already initialized")

	// ErrNotInitialized is reported when a native entry point runs before
	// Initialize installed the boundary.
	ErrNotInitialized = errors.New("bridge not initialized")

	// ErrNotAttached is returned by Current on a goroutine with no VM
	// attachment.
	ErrNotAttached = errors.New("calling thread is not attached to the VM")

	// ErrWrongThread is returned when an Env is used away from the
	// goroutine that owns it.
	ErrWrongThread = errors.New("env used from a thread that does not own it")

	// ErrDetachInCall is returned when a goroutine tries to detach an
	// attachment the VM established for a native call.
	ErrDetachInCall = errors.New("cannot detach a thread attached by the VM for a native call")

	// ErrNilVM is reported when Initialize receives no VM.
	ErrNilVM = errors.New("nil VM handle")

	// ErrNoSuchMethod is returned for calls to unregistered native entry points.
	ErrNoSuchMethod = errors.New("no such native method")
)

// ConfigError is a fatal misuse of the bridge: double initialization,
// initialization off the load hook, or running natives before Initialize.
type ConfigError struct {
	Err error
	Op  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("bridge: %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Kind classifies a managed exception.
type Kind string

const (
	KindRuntime      Kind = "runtime"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindNilPointer   Kind = "nil_pointer"
	KindIllegalState Kind = "illegal_state"
	KindInterrupted  Kind = "interrupted"
	KindNoSuchMethod Kind = "no_such_method"
	KindUnknown      Kind = "unknown"
)

// Exception is a managed-runtime exception. Native code raises one either
// by returning an error (translated at the boundary) or directly with
// Env.Throw; an *Exception returned from native code passes through the
// boundary unchanged.
type Exception struct {
	Cause   error
	Kind    Kind
	Message string
	Stack   string
}

// NewException builds an exception of the given kind.
func NewException(kind Kind, format string, args ...any) *Exception {
	return &Exception{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Exception) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// withStack returns a copy of e carrying stack. e may be shared between
// goroutines and is left untouched.
func (e *Exception) withStack(stack string) *Exception {
	cp := *e
	cp.Stack = stack
	return &cp
}

func (e *Exception) Unwrap() error {
	return e.Cause
}
