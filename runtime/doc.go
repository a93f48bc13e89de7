// Package runtime provides the NkOM runtime context: the class registry,
// the instance creation protocol, and the startup/shutdown lifecycle.
//
// # Quick Start
//
//	rt := runtime.New()
//	if _, err := rt.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Uninitialize()
//
//	// Install a factory
//	if err := rt.InstallClassFactory(myFactory); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create an instance, asking for a specific interface
//	obj, err := rt.CreateInstance(ctx, clsClock, nil, iidClock, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer obj.Release()
//
// # The Creation Protocol
//
// CreateInstance runs a fixed sequence:
//
//	1. resolve the factory registered for the CLSID
//	2. factory.CreateInstance produces a raw instance (refcount 1)
//	3. if the instance answers QueryInterface(IIDInitializable),
//	   Initialize runs; failure destroys the instance
//	4. QueryInterface for the caller's IID; the creation reference is
//	   released so the caller ends up holding exactly one reference
//
// Each step either advances or unwinds completely: a failed creation never
// leaks a partially constructed instance and never leaves a registry entry
// behind.
//
// # Installing Factories
//
// InstallClassFactory registers every CLSID the factory advertises, taking
// one factory reference per class. Installation is all-or-nothing: a
// duplicate CLSID or a full registry rejects the whole batch and the
// registry is left exactly as it was. UninstallClassFactory removes the
// factory's classes and releases the matching references; classes that were
// registered by a different factory are left alone.
//
// # Lifecycle
//
// Initialize and Uninitialize bracket all other operations and are
// idempotent; the bool result reports whether the call performed the
// transition. Every other method fails with a not_initialized error while
// the runtime is stopped. Uninitialize clears the registry and releases all
// held factory references.
//
// # Global Default
//
// A process-wide default runtime backs the package-level Initialize,
// InstallClassFactory, CreateInstance and friends, for programs that want
// the classic global surface. Libraries should prefer an explicit *Runtime.
//
// # Thread Safety
//
// All Runtime methods are safe for concurrent use. The registry lock is
// never held across CreateInstance or QueryInterface calls into a factory,
// so factories are free to call back into the runtime.
package runtime
