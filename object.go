package nkom

import (
	"context"
)

// Built-in interface IDs. Declared like any other interface so directory
// lookups and diagnostics treat them uniformly.
var (
	// IIDObject identifies the root Object contract.
	IIDObject = DeclareIID("7f1c9c5e-a3b4-4de6-9a3f-6b30bd9b71a8", "nkom.Object")

	// IIDInitializable identifies the optional two-phase construction contract.
	IIDInitializable = DeclareIID("9a7e2f4b-03fd-4bd2-8c1a-c2f51e8f11d0", "nkom.Initializable")

	// IIDClassFactory identifies the class factory contract.
	IIDClassFactory = DeclareIID("25c3cd16-9f9a-4a9c-b7a6-4ca408a1b8e4", "nkom.ClassFactory")
)

// Object is the root interface of the object model. Every NkOM object
// implements it; every derived interface embeds it.
type Object interface {
	// QueryInterface returns the sub-object implementing the requested
	// interface, with its reference count incremented once; the caller owns
	// the returned reference and must Release it.
	//
	// Over the set of interfaces an instance implements, QueryInterface is an
	// equivalence relation: querying an interface from itself succeeds, a
	// successful query is reversible, and reachability is transitive. For a
	// given instance the answer for a given IID never changes over the
	// instance's lifetime.
	//
	// Failures distinguish an IID that no component in the process declared
	// (unknown_interface) from one that is declared but not implemented by
	// this instance (not_implemented).
	QueryInterface(iid IID) (Object, error)

	// AddRef increments the reference count and returns the new value.
	// The returned count is for diagnostics only.
	AddRef() int32

	// Release decrements the reference count and returns the new value. When
	// the count reaches zero the object destroys itself synchronously before
	// Release returns; the pointer must not be used afterwards. The returned
	// count is for diagnostics only.
	Release() int32
}

// Initializable is the optional two-phase construction contract: a separate
// initialization step decoupled from allocation, invoked by the creation
// protocol after the factory produced the raw instance.
//
// The creation protocol discovers it by querying IIDInitializable, never by
// Go type assertion; an object that carries the method but does not answer
// the query is not initialized.
type Initializable interface {
	Object

	// Initialize performs logical construction with an implementation-defined
	// parameter, which may be nil. It must not change the object's own
	// reference count. On error the creation protocol destroys the instance
	// and fails as a whole.
	Initialize(ctx context.Context, param any) error
}

// ClassFactory produces instances of the classes it advertises. Factories are
// objects themselves: typically static singletons with stubbed reference
// counts, but counted, dynamically-allocated factories are equally valid and
// all callers must hold and release factory references symmetrically.
type ClassFactory interface {
	Object

	// InstantiableClasses returns the CLSIDs this factory can produce. The
	// returned slice is owned by the factory and must not be mutated; unless
	// a factory documents otherwise it is constant for the factory's
	// lifetime.
	InstantiableClasses() []CLSID

	// CreateInstance allocates an instance of clsID with zero-valued state
	// and a reference count of one. controlling is the aggregating outer
	// object and must be nil unless the class supports aggregation.
	//
	// CreateInstance performs no two-phase initialization; that is the
	// creation protocol's job.
	//
	// Errors: pure_virtual for the all-zero marker, unknown_class for a
	// CLSID the factory does not advertise, no_aggregation when controlling
	// is non-nil for a class without aggregation support.
	CreateInstance(ctx context.Context, clsID CLSID, controlling Object) (Object, error)
}
