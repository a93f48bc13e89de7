package nkom

import (
	"github.com/noriko-engine/nkom-runtime/errors"
)

// ImplementationIndex reports the position of iid in the implemented set, or
// -1 when absent. Implementations with a fixed interface list can answer
// QueryInterface by switching on the index.
func ImplementationIndex(implemented []IID, iid IID) int {
	for i, id := range implemented {
		if id == iid {
			return i
		}
	}
	return -1
}

// QueryFailure builds the error a QueryInterface implementation returns for
// an IID it does not serve: unknown_interface when no component in the
// process declared the IID, not_implemented when the interface exists but
// this instance does not carry it.
func QueryFailure(iid IID) error {
	if !KnownIID(iid) {
		return errors.UnknownInterface(iid.String())
	}
	return errors.NotImplemented(DescribeIID(iid))
}

// QueryByIndex is the query half shared by fixed-list implementations: it
// resolves iid against implemented and either returns self with one
// reference added or the appropriate failure. self must be the object that
// serves every interface in implemented.
func QueryByIndex(self Object, implemented []IID, iid IID) (Object, error) {
	if ImplementationIndex(implemented, iid) < 0 {
		return nil, QueryFailure(iid)
	}
	self.AddRef()
	return self, nil
}
