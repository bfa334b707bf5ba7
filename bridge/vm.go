package bridge

import (
	"context"
	"fmt"
)

// VM is the handle of a running managed virtual machine.
type VM interface {
	// SuccessStatus is the status a load hook returns on success.
	SuccessStatus() Status

	// GetEnv returns the Env of the calling goroutine, or ErrNotAttached.
	GetEnv() (Env, error)

	// AttachCurrentThread attaches the calling goroutine, pinning it to its
	// OS thread. Attaching an attached goroutine returns its current Env.
	AttachCurrentThread() (Env, error)

	// DetachCurrentThread undoes AttachCurrentThread.
	DetachCurrentThread() error
}

// Attach gives the calling goroutine an Env on vm. The returned detach must
// be called on the same goroutine once it is done with the VM. A goroutine
// that was already attached keeps its attachment and gets a no-op detach.
func Attach(vm VM) (Env, func() error, error) {
	if vm == nil {
		return nil, nil, ErrNilVM
	}
	if env, err := vm.GetEnv(); err == nil {
		return env, func() error { return nil }, nil
	}
	env, err := vm.AttachCurrentThread()
	if err != nil {
		return nil, nil, fmt.Errorf("attach current thread: %w", err)
	}
	detached := false
	detach := func() error {
		if detached {
			return nil
		}
		detached = true
		return vm.DetachCurrentThread()
	}
	return env, detach, nil
}

// WithAttached runs fn on an attached goroutine with the Env bound into ctx,
// and detaches afterwards even if fn panics.
func WithAttached(ctx context.Context, vm VM, fn func(ctx context.Context, env Env) error) (err error) {
	env, detach, err := Attach(vm)
	if err != nil {
		return err
	}
	defer func() {
		if derr := detach(); derr != nil && err == nil {
			err = fmt.Errorf("detach current thread: %w", derr)
		}
	}()
	return fn(WithEnv(ctx, env), env)
}
