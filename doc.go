// Package nkom provides the Noriko Object Model: a lightweight, COM-like
// component model for Go with interface-based polymorphism, reference-counted
// lifetimes, and dynamic class instantiation across module boundaries.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	nkom-runtime/        Root package with identity types and the core contracts
//	├── runtime/         Class registry, instance creation protocol, lifecycle
//	├── factory/         Reusable class factory implementations
//	├── provider/wasm/   Class factory hosting guest classes in a WASM module
//	├── manifest/        nkom.toml configuration for tooling
//	├── errors/          Structured error types for the closed NkOM code set
//	└── cmd/nkom/        Registry inspector CLI with interactive TUI
//
// # Identity
//
// Every interface and class is named by a 128-bit UUID. Interface IDs (IID)
// name method-set contracts; Class IDs (CLSID) name concrete implementations.
// Both live in one identity space:
//
//	var IIDClock = nkom.DeclareIID("b2f1c67e-33b1-4a9d-9f5e-55f6cfc2f6d2", "demo.Clock")
//	var CLSIDClock = nkom.DeclareCLSID("7d9f3a04-1a7c-4b83-8e61-a3c55e0df6cd", "demo.clock")
//
// Declaring an identifier records it in the process-wide directory, which is
// how the runtime distinguishes "interface unknown to anyone" from "interface
// known but not implemented by this instance".
//
// # The Root Contract
//
// Object is the root interface every NkOM object implements:
//
//	type Object interface {
//	    QueryInterface(iid IID) (Object, error)
//	    AddRef() int32
//	    Release() int32
//	}
//
// QueryInterface returns a reference to the sub-object implementing the
// requested interface, incrementing its reference count; the caller owns that
// reference and must Release it. Derived interfaces embed Object (or another
// derived interface), which is the Go spelling of the prefix-compatible
// VTable convention: any derived value satisfies its base contracts.
//
// # Lifetimes
//
// Objects are reference counted. An object is valid exactly while its count
// is greater than zero and is destroyed synchronously inside the Release call
// that drives the count to zero. The returned counts are diagnostic only;
// callers must not branch on them.
//
// # Creating Instances
//
// Classes are produced by factories registered with a runtime:
//
//	rt := runtime.New()
//	rt.Initialize()
//	defer rt.Uninitialize()
//
//	rt.InstallClassFactory(myFactory)
//
//	obj, err := rt.CreateInstance(ctx, CLSIDClock, nil, IIDClock, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obj.Release()
//
// CreateInstance is atomic: on any failure (unregistered class, two-phase
// initialization error, missing interface) no instance leaks and no reference
// is left behind.
//
// # Thread Safety
//
// The runtime and its registry are safe for concurrent use. Reference counts
// built on RefCount are atomic. Individual class implementations own the
// thread safety of their remaining state.
package nkom
