package bridge

import (
	"runtime"

	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v4"
)

// ThreadTable maps goroutines to their VM attachment. VM implementations
// embed one to answer GetEnv without locks.
type ThreadTable struct {
	envs *xsync.Map[int64, attachment]
}

type attachment struct {
	env Env
	// pinned marks attachments made with Attach; those own an
	// OS-thread lock and may be detached explicitly.
	pinned bool
}

// NewThreadTable returns an empty table.
func NewThreadTable() *ThreadTable {
	return &ThreadTable{envs: xsync.NewMap[int64, attachment]()}
}

// Lookup returns the Env attached to the calling goroutine.
func (t *ThreadTable) Lookup() (Env, bool) {
	a, ok := t.envs.Load(goid.Get())
	if !ok {
		return nil, false
	}
	return a.env, true
}

// Attach pins the calling goroutine to its OS thread and attaches a new Env
// built by newEnv. An already attached goroutine gets its existing Env back
// and created is false.
func (t *ThreadTable) Attach(newEnv func() Env) (env Env, created bool) {
	id := goid.Get()
	if a, ok := t.envs.Load(id); ok {
		return a.env, false
	}
	runtime.LockOSThread()
	env = newEnv()
	t.envs.Store(id, attachment{env: env, pinned: true})
	return env, true
}

// Detach removes an attachment made with Attach and unpins the goroutine.
func (t *ThreadTable) Detach() error {
	id := goid.Get()
	a, ok := t.envs.Load(id)
	if !ok {
		return ErrNotAttached
	}
	if !a.pinned {
		return ErrDetachInCall
	}
	t.envs.Delete(id)
	runtime.UnlockOSThread()
	return nil
}

// Bind attaches env to its owning goroutine for the duration of one native
// call. The returned release restores whatever was attached before, so
// nested calls unwind correctly. release must run on the same goroutine.
func (t *ThreadTable) Bind(env Env) (release func()) {
	id := env.Owner()
	prev, had := t.envs.Load(id)
	t.envs.Store(id, attachment{env: env})
	return func() {
		if had {
			t.envs.Store(id, prev)
			return
		}
		t.envs.Delete(id)
	}
}

// Len reports the number of attached goroutines.
func (t *ThreadTable) Len() int {
	return t.envs.Size()
}
