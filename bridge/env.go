package bridge

import (
	"context"

	"github.com/petermattis/goid"
)

// Env is the call context: one goroutine's active connection to the VM.
// It is borrowed from the VM and must only be used by its owner.
type Env interface {
	// Owner is the goroutine id the Env belongs to.
	Owner() int64

	// Throw makes exc the pending exception, replacing any previous one.
	Throw(exc *Exception)

	// ExceptionCheck reports whether an exception is pending.
	ExceptionCheck() bool

	// ExceptionOccurred returns the pending exception or nil.
	ExceptionOccurred() *Exception

	// ExceptionClear drops the pending exception.
	ExceptionClear()
}

// BaseEnv is a ready-made Env owned by the goroutine that created it.
// VM implementations embed or hand it out directly.
type BaseEnv struct {
	pending *Exception
	owner   int64
}

// NewBaseEnv returns an Env owned by the calling goroutine.
func NewBaseEnv() *BaseEnv {
	return &BaseEnv{owner: goid.Get()}
}

func (e *BaseEnv) Owner() int64 { return e.owner }

func (e *BaseEnv) Throw(exc *Exception) { e.pending = exc }

func (e *BaseEnv) ExceptionCheck() bool { return e.pending != nil }

func (e *BaseEnv) ExceptionOccurred() *Exception { return e.pending }

func (e *BaseEnv) ExceptionClear() { e.pending = nil }

type envKey struct{}

// WithEnv binds env to ctx for the duration of a native call.
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

func envFromContext(ctx context.Context) (Env, bool) {
	if ctx == nil {
		return nil, false
	}
	env, ok := ctx.Value(envKey{}).(Env)
	return env, ok && env != nil
}
