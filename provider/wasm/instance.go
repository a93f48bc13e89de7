package wasm

import (
	"context"
	"sync"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// Instance is the host-side wrapper around one guest object handle. It
// implements nkom.Object, and nkom.Initializable when the guest does.
type Instance struct {
	refs    nkom.RefCount
	factory *Factory
	class   nkom.CLSID
	handle  uint64

	mu    sync.Mutex
	asked map[nkom.IID]bool
}

// QueryInterface implements nkom.Object. The built-in contracts are answered
// host-side: every instance is an Object, it is Initializable exactly when
// the guest exports nk-initialize, and it is never a ClassFactory. Any other
// IID is put to the guest once and the verdict cached, which keeps answers
// stable for the instance's lifetime.
func (i *Instance) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	switch iid {
	case nkom.IIDObject:
		i.AddRef()
		return i, nil
	case nkom.IIDInitializable:
		if i.factory.initFn == nil {
			return nil, errors.NotImplemented(nkom.DescribeIID(iid))
		}
		i.AddRef()
		return i, nil
	case nkom.IIDClassFactory:
		return nil, errors.NotImplemented(nkom.DescribeIID(iid))
	}

	ok, err := i.implements(iid)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nkom.QueryFailure(iid)
	}
	i.AddRef()
	return i, nil
}

// implements resolves one guest-side membership question, consulting the
// cache first. The Object contract carries no context, so guest queries run
// under the background context.
func (i *Instance) implements(iid nkom.IID) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if ok, seen := i.asked[iid]; seen {
		return ok, nil
	}
	ok, err := i.factory.callQuery(context.Background(), i.handle, iid)
	if err != nil {
		return false, err
	}
	i.asked[iid] = ok
	return ok, nil
}

// AddRef implements nkom.Object.
func (i *Instance) AddRef() int32 {
	return i.refs.Inc()
}

// Release implements nkom.Object. The final release destroys the guest
// object and unpins the factory.
func (i *Instance) Release() int32 {
	n := i.refs.Dec()
	if n == 0 {
		i.factory.destroyHandle(context.Background(), i.handle)
		i.factory.Release()
	}
	return n
}

// Initialize implements nkom.Initializable. The parameter crosses into the
// guest as canonical CBOR.
func (i *Instance) Initialize(ctx context.Context, param any) error {
	if i.factory.initFn == nil {
		return errors.NotImplemented(nkom.DescribeIID(nkom.IIDInitializable))
	}
	encoded, err := EncodeInitParam(param)
	if err != nil {
		return errors.New(errors.PhaseProvider, errors.KindInvalidInput).
			Cause(err).
			Detail("initialization parameter does not encode").
			Build()
	}
	return i.factory.callInitialize(ctx, i.handle, i.class, encoded)
}

// Class returns the CLSID this instance was created from.
func (i *Instance) Class() nkom.CLSID {
	return i.class
}
