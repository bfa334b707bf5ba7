// Package wazerovm runs the bridge on top of the wazero WebAssembly runtime.
//
// A Runtime is a bridge.VM. Native libraries are loaded with LoadLibrary,
// whose load hook initializes the bridge and registers natives.Table
// instances as host modules. Guest modules then call those natives using
// the packed i64 pointer/length convention:
//
//	rt, err := wazerovm.New(ctx)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	err = rt.LoadLibrary(ctx, wazerovm.Library{
//	    Name: "checksum",
//	    OnLoad: func(vm bridge.VM) bridge.Status {
//	        return bridge.Initialize(vm, func() error {
//	            return rt.RegisterNatives("checksum", table)
//	        })
//	    },
//	})
//
// Each native call runs inside the bridge's error boundary. A native that
// fails leaves a *bridge.Exception pending, and the runtime raises it in
// the guest as a trap, so the error returned by the guest's api.Function
// Call unwraps to that exception.
package wazerovm
