package wazerovm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/nativebridge/bridge"
)

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}

// readRequest copies the request bytes out of guest memory.
func readRequest(mod api.Module, packed uint64, maxSize uint32) ([]byte, *bridge.Exception) {
	ptr, length := unpackPtrLen(packed)
	if length == 0 {
		return nil, nil
	}
	if length > maxSize {
		return nil, bridge.NewException(bridge.KindOutOfBounds,
			"request size %d exceeds maximum %d bytes", length, maxSize)
	}
	mem := mod.Memory()
	if mem == nil {
		return nil, bridge.NewException(bridge.KindIllegalState, "guest module exports no memory")
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, bridge.NewException(bridge.KindOutOfBounds,
			"request [%d, %d) is outside guest memory", ptr, uint64(ptr)+uint64(length))
	}
	// The view aliases guest memory, which the native may outlive.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// writeResponse allocates memory in the guest through its "allocate"
// export and copies data there. An empty response is packed as 0.
func writeResponse(ctx context.Context, mod api.Module, data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, nil
	}
	allocateFn := mod.ExportedFunction("allocate")
	if allocateFn == nil {
		return 0, fmt.Errorf("guest module missing 'allocate' export")
	}

	results, err := allocateFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to call guest allocate: %w", err)
	}
	ptr := uint32(results[0]) //nolint:gosec // G115: WASM32 pointers are always 32-bit

	mem := mod.Memory()
	if mem == nil || !mem.Write(ptr, data) {
		return 0, fmt.Errorf("failed to write %d response bytes at %d", len(data), ptr)
	}
	return packPtrLen(ptr, uint32(len(data))), nil //nolint:gosec // G115: Data length is bounded by guest memory
}
