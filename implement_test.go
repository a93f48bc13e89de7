package nkom

import (
	"testing"

	"github.com/noriko-engine/nkom-runtime/errors"
)

// fixedObject is a minimal implementation serving a fixed interface list
// from a single Go object.
type fixedObject struct {
	refs RefCount
	impl []IID
}

func newFixedObject(impl ...IID) *fixedObject {
	o := &fixedObject{impl: impl}
	o.refs.Inc()
	return o
}

func (o *fixedObject) QueryInterface(iid IID) (Object, error) {
	return QueryByIndex(o, o.impl, iid)
}

func (o *fixedObject) AddRef() int32  { return o.refs.Inc() }
func (o *fixedObject) Release() int32 { return o.refs.Dec() }

func TestImplementationIndex(t *testing.T) {
	a, b, c := NewUUID(), NewUUID(), NewUUID()
	impl := []IID{a, b, c}

	if got := ImplementationIndex(impl, a); got != 0 {
		t.Errorf("index of first = %d, want 0", got)
	}
	if got := ImplementationIndex(impl, c); got != 2 {
		t.Errorf("index of last = %d, want 2", got)
	}
	if got := ImplementationIndex(impl, NewUUID()); got != -1 {
		t.Errorf("index of absent = %d, want -1", got)
	}
	if got := ImplementationIndex(nil, a); got != -1 {
		t.Errorf("index in empty list = %d, want -1", got)
	}
}

func TestQueryFailureDistinguishesUnknownFromUnimplemented(t *testing.T) {
	// IIDObject is declared by this package; the random IID is declared
	// nowhere in the process.
	err := QueryFailure(IIDObject)
	if !errors.HasKind(err, errors.KindNotImplemented) {
		t.Errorf("declared IID failure = %v, want not_implemented", err)
	}

	err = QueryFailure(NewUUID())
	if !errors.HasKind(err, errors.KindUnknownInterface) {
		t.Errorf("undeclared IID failure = %v, want unknown_interface", err)
	}
}

func TestQueryByIndex(t *testing.T) {
	extra := DeclareIID(NewUUID().String(), "nkomtest.Extra")
	obj := newFixedObject(IIDObject, extra)

	got, err := obj.QueryInterface(IIDObject)
	if err != nil {
		t.Fatalf("QueryInterface(IIDObject) failed: %v", err)
	}
	if got != Object(obj) {
		t.Error("fixed-list query should return the same object")
	}
	if obj.refs.Load() != 2 {
		t.Errorf("refcount after successful query = %d, want 2", obj.refs.Load())
	}
	got.Release()

	// Declared elsewhere but not in this object's list.
	if _, err := obj.QueryInterface(IIDInitializable); !errors.HasKind(err, errors.KindNotImplemented) {
		t.Errorf("unimplemented query error = %v, want not_implemented", err)
	}
	// Never declared at all.
	if _, err := obj.QueryInterface(NewUUID()); !errors.HasKind(err, errors.KindUnknownInterface) {
		t.Errorf("unknown query error = %v, want unknown_interface", err)
	}
	// Failed queries leave the count alone.
	if obj.refs.Load() != 1 {
		t.Errorf("refcount after failed queries = %d, want 1", obj.refs.Load())
	}
}
