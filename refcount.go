package nkom

import (
	"sync/atomic"
)

// RefCount is an embeddable atomic reference count. The zero value counts
// zero references; implementations typically call Inc once at construction
// to hand out the initial reference.
//
// The embedding object wires Dec into its Release and destroys itself when
// Dec returns zero. Dec returns zero exactly once for any balanced sequence
// of Inc/Dec calls, which is what makes the destroy-once contract hold under
// concurrent release.
type RefCount struct {
	n atomic.Int32
}

// Inc increments the count and returns the new value.
func (rc *RefCount) Inc() int32 {
	return rc.n.Add(1)
}

// Dec decrements the count and returns the new value. The caller destroys
// the object when and only when the return is zero.
func (rc *RefCount) Dec() int32 {
	return rc.n.Add(-1)
}

// Load returns the current count. Diagnostic use only: the value may be
// stale by the time the caller looks at it.
func (rc *RefCount) Load() int32 {
	return rc.n.Load()
}

// StaticRefCount is the reference-count stub for objects with static storage
// duration, class factory singletons most commonly. AddRef and Release keep
// the object alive forever and report a constant 1.
type StaticRefCount struct{}

// AddRef reports 1 and changes nothing.
func (StaticRefCount) AddRef() int32 { return 1 }

// Release reports 1 and never destroys the object.
func (StaticRefCount) Release() int32 { return 1 }
