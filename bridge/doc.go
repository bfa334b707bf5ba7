// Package bridge lets native Go code run safely behind a managed virtual
// machine's native-interface boundary.
//
// It does three things:
//
//   - Initialize performs the one-time, per-process setup from the VM's
//     library load hook and installs the error boundary.
//   - Current returns the Env (call context) of the calling goroutine.
//   - Guard runs native entry points inside the boundary so that errors and
//     panics surface as pending managed exceptions instead of escaping.
//
// A load hook should do nothing except return the result of Initialize:
//
//	func OnLoad(vm bridge.VM) bridge.Status {
//	    return bridge.Initialize(vm, func() error {
//	        return registerNatives(vm)
//	    })
//	}
//
// Skipping Initialize leaves every later native call without a boundary;
// Guard then refuses to run and reports ErrNotInitialized.
package bridge
