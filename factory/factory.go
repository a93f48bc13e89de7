// Package factory provides reusable class factory implementations: Static
// for the usual refcount-stubbed singleton, Counted for factories whose own
// lifetime matters.
package factory

import (
	"context"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// Class describes one instantiable class.
type Class struct {
	// ID is the class identity. Must not be the all-zero marker.
	ID nkom.CLSID

	// Name is optional and only used for diagnostics.
	Name string

	// Aggregatable marks classes that accept a controlling outer object.
	Aggregatable bool

	// New allocates a fresh instance with a reference count of one and
	// otherwise zero-valued state. controlling is non-nil only when the
	// class is aggregatable. New must not run second-phase initialization;
	// that belongs to the creation protocol.
	New func(controlling nkom.Object) nkom.Object
}

// classSet is the lookup and instantiation core shared by Static and
// Counted.
type classSet struct {
	byID map[nkom.CLSID]Class
	ids  []nkom.CLSID
}

func newClassSet(classes []Class) (*classSet, error) {
	if len(classes) == 0 {
		return nil, errors.InvalidInput(errors.PhaseFactory, "factory needs at least one class")
	}

	cs := &classSet{
		byID: make(map[nkom.CLSID]Class, len(classes)),
		ids:  make([]nkom.CLSID, 0, len(classes)),
	}
	for _, c := range classes {
		if nkom.IsPureVirtual(c.ID) {
			return nil, errors.PureVirtual(errors.PhaseFactory)
		}
		if c.New == nil {
			return nil, errors.New(errors.PhaseFactory, errors.KindInvalidInput).
				Class(describe(c)).
				Detail("class has no constructor").
				Build()
		}
		if _, dup := cs.byID[c.ID]; dup {
			return nil, errors.New(errors.PhaseFactory, errors.KindInvalidInput).
				Class(describe(c)).
				Detail("class listed twice").
				Build()
		}
		cs.byID[c.ID] = c
		cs.ids = append(cs.ids, c.ID)
	}
	return cs, nil
}

func describe(c Class) string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.String()
}

func (cs *classSet) create(clsID nkom.CLSID, controlling nkom.Object) (nkom.Object, error) {
	if nkom.IsPureVirtual(clsID) {
		return nil, errors.PureVirtual(errors.PhaseFactory)
	}
	c, ok := cs.byID[clsID]
	if !ok {
		return nil, errors.UnknownClass(errors.PhaseFactory, nkom.DescribeCLSID(clsID))
	}
	if controlling != nil && !c.Aggregatable {
		return nil, errors.NoAggregation(errors.PhaseFactory, describe(c))
	}

	obj := c.New(controlling)
	if obj == nil {
		return nil, errors.New(errors.PhaseFactory, errors.KindInvalidInput).
			Class(describe(c)).
			Detail("constructor returned nil").
			Build()
	}
	return obj, nil
}

var factoryIIDs = []nkom.IID{nkom.IIDObject, nkom.IIDClassFactory}

// Static is a class factory with static storage duration: its reference
// count is stubbed and it is never destroyed. This is the common case;
// declare one per module and install it at startup.
type Static struct {
	nkom.StaticRefCount
	set *classSet
}

// NewStatic builds a static factory over the given classes. It fails on an
// empty list, a pure-virtual class ID, a missing constructor, or a
// duplicated class.
func NewStatic(classes ...Class) (*Static, error) {
	set, err := newClassSet(classes)
	if err != nil {
		return nil, err
	}
	return &Static{set: set}, nil
}

// MustStatic is NewStatic for package-level factory variables, where a bad
// class table is a programmer error.
func MustStatic(classes ...Class) *Static {
	f, err := NewStatic(classes...)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Static) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(f, factoryIIDs, iid)
}

func (f *Static) InstantiableClasses() []nkom.CLSID {
	return f.set.ids
}

func (f *Static) CreateInstance(ctx context.Context, clsID nkom.CLSID, controlling nkom.Object) (nkom.Object, error) {
	return f.set.create(clsID, controlling)
}

// Counted is a class factory with a live reference count and an optional
// destructor hook. Use it when the factory owns resources of its own; the
// registry's install/uninstall references then pin those resources exactly
// as long as the factory stays installed.
type Counted struct {
	refs      nkom.RefCount
	set       *classSet
	onDestroy func()
}

// NewCounted builds a counted factory with one reference owned by the
// caller. onDestroy, if not nil, runs synchronously when the last reference
// is released. Validation matches NewStatic.
func NewCounted(onDestroy func(), classes ...Class) (*Counted, error) {
	set, err := newClassSet(classes)
	if err != nil {
		return nil, err
	}
	f := &Counted{set: set, onDestroy: onDestroy}
	f.refs.Inc()
	return f, nil
}

func (f *Counted) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(f, factoryIIDs, iid)
}

func (f *Counted) AddRef() int32 {
	return f.refs.Inc()
}

func (f *Counted) Release() int32 {
	n := f.refs.Dec()
	if n == 0 && f.onDestroy != nil {
		f.onDestroy()
	}
	return n
}

func (f *Counted) InstantiableClasses() []nkom.CLSID {
	return f.set.ids
}

func (f *Counted) CreateInstance(ctx context.Context, clsID nkom.CLSID, controlling nkom.Object) (nkom.Object, error) {
	return f.set.create(clsID, controlling)
}
