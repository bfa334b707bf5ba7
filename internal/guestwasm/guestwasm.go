// Package guestwasm holds a small hand-assembled guest module used by the
// wazero VM tests and the demo.
//
// The module imports two natives from ImportModule, "ok" and "fail", both
// (i64) -> i64 using the packed pointer/length convention, and exports:
//
//	run_ok(i64) i64    calls ok with its argument and returns the result
//	run_fail(i64) i64  calls fail with its argument and returns the result
//	allocate(i32) i32  always returns AllocateOffset
//	memory             one page
package guestwasm

// ImportModule is the module name the guest imports its natives from.
const ImportModule = "bridge_native"

// AllocateOffset is where the guest's allocate places every response.
const AllocateOffset = 1024

// Module is the binary guest module.
var Module = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,

	// type: (i64)->i64, (i32)->i32
	0x01, 0x0b, 0x02,
	0x60, 0x01, 0x7e, 0x01, 0x7e,
	0x60, 0x01, 0x7f, 0x01, 0x7f,

	// import: bridge_native.ok, bridge_native.fail
	0x02, 0x29, 0x02,
	0x0d, 'b', 'r', 'i', 'd', 'g', 'e', '_', 'n', 'a', 't', 'i', 'v', 'e',
	0x02, 'o', 'k', 0x00, 0x00,
	0x0d, 'b', 'r', 'i', 'd', 'g', 'e', '_', 'n', 'a', 't', 'i', 'v', 'e',
	0x04, 'f', 'a', 'i', 'l', 0x00, 0x00,

	// function: run_ok, run_fail, allocate
	0x03, 0x04, 0x03, 0x00, 0x00, 0x01,

	// memory: min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,

	// export
	0x07, 0x29, 0x04,
	0x06, 'r', 'u', 'n', '_', 'o', 'k', 0x00, 0x02,
	0x08, 'r', 'u', 'n', '_', 'f', 'a', 'i', 'l', 0x00, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x08, 'a', 'l', 'l', 'o', 'c', 'a', 't', 'e', 0x00, 0x04,

	// code
	0x0a, 0x15, 0x03,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x00, 0x0b,
	0x06, 0x00, 0x20, 0x00, 0x10, 0x01, 0x0b,
	0x05, 0x00, 0x41, 0x80, 0x08, 0x0b,
}
