// Package bridgetest provides an in-memory VM and assertions for testing
// code that runs behind the bridge.
package bridgetest

import (
	"context"

	"github.com/reglet-dev/nativebridge/bridge"
)

// VM is an in-memory bridge.VM. Load and Call play the part of the real VM
// invoking a load hook or a native method on an attached thread.
type VM struct {
	threads *bridge.ThreadTable
	status  bridge.Status
}

// Option configures a VM.
type Option func(*VM)

// WithSuccessStatus sets the status SuccessStatus reports.
func WithSuccessStatus(s bridge.Status) Option {
	return func(v *VM) {
		v.status = s
	}
}

// NewVM returns a VM that reports bridge.Version16 on success.
func NewVM(opts ...Option) *VM {
	v := &VM{threads: bridge.NewThreadTable(), status: bridge.Version16}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VM) SuccessStatus() bridge.Status {
	return v.status
}

func (v *VM) GetEnv() (bridge.Env, error) {
	env, ok := v.threads.Lookup()
	if !ok {
		return nil, bridge.ErrNotAttached
	}
	return env, nil
}

func (v *VM) AttachCurrentThread() (bridge.Env, error) {
	env, _ := v.threads.Attach(func() bridge.Env { return bridge.NewBaseEnv() })
	return env, nil
}

func (v *VM) DetachCurrentThread() error {
	return v.threads.Detach()
}

// Attached reports how many goroutines are attached.
func (v *VM) Attached() int {
	return v.threads.Len()
}

// Load runs a library load hook on the calling goroutine, attached for the
// duration of the hook. It returns the hook's status and the exception left
// pending for the loader, which is cleared.
func (v *VM) Load(onLoad func(bridge.VM) bridge.Status) (bridge.Status, *bridge.Exception) {
	env := bridge.NewBaseEnv()
	release := v.threads.Bind(env)
	defer release()

	status := onLoad(v)
	exc := env.ExceptionOccurred()
	env.ExceptionClear()
	return status, exc
}

// Call runs native as a native method invoked by the VM and returns the
// exception it left pending, which the VM would raise in the caller.
func (v *VM) Call(ctx context.Context, native func(ctx context.Context)) *bridge.Exception {
	env := bridge.NewBaseEnv()
	release := v.threads.Bind(env)
	defer release()

	native(bridge.WithEnv(ctx, env))
	exc := env.ExceptionOccurred()
	env.ExceptionClear()
	return exc
}
