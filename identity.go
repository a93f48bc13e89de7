package nkom

import (
	"fmt"
	"sync"
)

// directory is the process-wide table of declared identifiers. It exists so
// the runtime can tell an interface nobody declared apart from one a given
// instance simply does not implement, and so tooling can print names instead
// of raw UUIDs. Declarations normally happen in package init functions;
// lookups happen at any time.
type directory struct {
	mu         sync.RWMutex
	interfaces map[UUID]string
	classes    map[UUID]string
}

var identities = &directory{
	interfaces: make(map[UUID]string),
	classes:    make(map[UUID]string),
}

func (d *directory) declare(m map[UUID]string, id UUID, name, what string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := m[id]; ok && prev != name {
		panic(fmt.Sprintf("nkom: %s %s already declared as %q, redeclared as %q", what, id, prev, name))
	}
	m[id] = name
}

// DeclareIID parses s, records the interface in the identity directory under
// name, and returns the IID. Panics on a malformed literal or on redeclaring
// the same IID under a different name; both are init-time programmer errors.
//
// The conventional name is the package-qualified Go interface name, e.g.
// "demo.Clock".
func DeclareIID(s, name string) IID {
	id := MustUUID(s)
	if id.IsZero() {
		panic("nkom: the nil UUID cannot be declared as an interface")
	}
	identities.declare(identities.interfaces, id, name, "interface")
	return id
}

// DeclareCLSID parses s, records the class in the identity directory under
// name, and returns the CLSID. The all-zero pure-virtual marker cannot be
// declared. Panics follow the DeclareIID rules.
func DeclareCLSID(s, name string) CLSID {
	id := MustUUID(s)
	if id.IsZero() {
		panic("nkom: the pure-virtual marker cannot be declared as a class")
	}
	identities.declare(identities.classes, id, name, "class")
	return id
}

// KnownIID reports whether id has been declared as an interface anywhere in
// the process.
func KnownIID(id IID) bool {
	identities.mu.RLock()
	defer identities.mu.RUnlock()
	_, ok := identities.interfaces[id]
	return ok
}

// InterfaceName returns the declared name for an interface ID.
func InterfaceName(id IID) (string, bool) {
	identities.mu.RLock()
	defer identities.mu.RUnlock()
	name, ok := identities.interfaces[id]
	return name, ok
}

// ClassName returns the declared name for a class ID.
func ClassName(id CLSID) (string, bool) {
	identities.mu.RLock()
	defer identities.mu.RUnlock()
	name, ok := identities.classes[id]
	return name, ok
}

// DescribeIID renders an IID for diagnostics: the declared name when known,
// the canonical UUID text otherwise.
func DescribeIID(id IID) string {
	if name, ok := InterfaceName(id); ok {
		return name
	}
	return id.String()
}

// DescribeCLSID renders a CLSID for diagnostics, like DescribeIID.
func DescribeCLSID(id CLSID) string {
	if name, ok := ClassName(id); ok {
		return name
	}
	return id.String()
}
