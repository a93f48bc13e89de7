package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	nkom "github.com/noriko-engine/nkom-runtime"
)

// sharedObject is an Object double whose references may be co-owned by
// something other than the inspector.
type sharedObject struct {
	refs     nkom.RefCount
	destroys int
}

func (o *sharedObject) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(o, []nkom.IID{nkom.IIDObject}, iid)
}

func (o *sharedObject) AddRef() int32 { return o.refs.Inc() }

func (o *sharedObject) Release() int32 {
	c := o.refs.Dec()
	if c == 0 {
		o.destroys++
	}
	return c
}

func TestInspector_ReleaseSparesOtherOwners(t *testing.T) {
	obj := &sharedObject{}
	obj.AddRef() // inspector's creation reference
	obj.AddRef() // inspector AddRef
	obj.AddRef() // second owner

	m := &inspectorModel{state: stateInstance, obj: obj, held: 2}
	m.releaseInstance()

	if m.obj != nil {
		t.Fatalf("obj = %v, want nil after release", m.obj)
	}
	if m.held != 0 {
		t.Fatalf("held = %d, want 0", m.held)
	}
	if obj.destroys != 0 {
		t.Fatalf("object destroyed %d times while another owner still references it", obj.destroys)
	}
	if got := obj.refs.Load(); got != 1 {
		t.Fatalf("remaining references = %d, want 1", got)
	}
}

func TestInspector_ReleaseDropsEveryHeldReference(t *testing.T) {
	obj := &sharedObject{}
	obj.AddRef()
	obj.AddRef()

	m := &inspectorModel{state: stateInstance, obj: obj, held: 2}
	m.releaseInstance()

	if obj.destroys != 1 {
		t.Fatalf("destroys = %d, want exactly 1", obj.destroys)
	}
	if got := obj.refs.Load(); got != 0 {
		t.Fatalf("remaining references = %d, want 0", got)
	}
}

func TestInspector_ReleaseKeyUsesOwnLedger(t *testing.T) {
	obj := &sharedObject{}
	obj.AddRef() // inspector's creation reference
	obj.AddRef() // second owner

	m := &inspectorModel{state: stateInstance, obj: obj, held: 1}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})

	if m.state != stateBrowse {
		t.Fatalf("state = %d, want browse after releasing the last held reference", m.state)
	}
	if m.obj != nil {
		t.Fatalf("obj = %v, want nil after releasing the last held reference", m.obj)
	}
	if obj.destroys != 0 {
		t.Fatalf("object destroyed under its other owner")
	}
	if got := obj.refs.Load(); got != 1 {
		t.Fatalf("remaining references = %d, want 1", got)
	}
}
