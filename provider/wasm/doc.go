// Package wasm provides a class factory whose classes live in a
// WebAssembly guest module, executed with wazero. It is how NkOM classes
// cross a module boundary: the host sees ordinary Objects; creation,
// interface queries, initialization, and destruction are forwarded to the
// guest.
//
// # Quick Start
//
//	f, err := wasm.Load(ctx, wasmBytes, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rt.InstallClassFactory(f)
//	f.Release() // the registry keeps it alive while installed
//
//	obj, err := rt.CreateInstance(ctx, clsRemote, nil, iidRemote, params)
//
// # Guest ABI
//
// A guest module exports flat core-wasm functions; no component-model
// tooling is required:
//
//	memory                                    exported linear memory
//	nk-alloc(size: i32) -> i32                allocate guest memory for host data
//	nk-class-count() -> i32                   number of instantiable classes
//	nk-class-id(index: i32, out: i32)         write the 16-byte CLSID to out
//	nk-create(clsid: i32) -> i64              nonzero instance handle, 0 on failure
//	nk-query-interface(h: i64, iid: i32) -> i32   1 when the instance implements iid
//	nk-initialize(h: i64, ptr: i32, len: i32) -> i32   optional; 0 on success
//	nk-destroy(h: i64)                        destroy the instance behind h
//
// UUIDs cross the boundary as their 16 raw bytes at a pointer obtained from
// nk-alloc. Initialization parameters cross as canonical CBOR. Memory
// handed to the guest belongs to the guest afterwards; the ABI has no free
// call, so guests typically use an arena they recycle themselves.
//
// # Lifetimes
//
// The factory is a counted object. Every live guest instance holds one
// factory reference, so the embedded wazero runtime survives until the last
// instance and the last installer are gone; the final Release closes it.
// Close may also be called directly during teardown: it destroys any
// leftover guest handles and shuts the runtime down, and later instance
// releases become host-side no-ops.
//
// Host-defined contracts are answered host-side: every instance implements
// Object, an instance implements Initializable exactly when its module
// exports nk-initialize, and no guest instance is a ClassFactory. All other
// IIDs are put to the guest once and the answer is cached, which keeps
// per-instance answers stable for the instance's lifetime.
//
// # Thread Safety
//
// A core wasm instance is single-threaded, so the factory serializes all
// guest calls behind one mutex. Factories and their instances are safe for
// concurrent use; throughput is bounded by the guest being one lane wide.
package wasm
