package runtime

import (
	"bytes"
	"sort"
	"sync"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// classRegistry maps CLSIDs to the factories that produce them. Each entry
// holds one factory reference, taken at install and released at uninstall or
// drain. The lock guards the map only; reference counts are taken outside it
// so a factory's AddRef or Release never runs under the registry lock, with
// one exception: lookup bumps the count while still holding the read lock,
// which is what keeps the handed-out reference valid against a concurrent
// uninstall.
type classRegistry struct {
	entries  map[nkom.CLSID]nkom.ClassFactory
	capacity int // 0 = unbounded
	mu       sync.RWMutex
}

func newClassRegistry(capacity int) *classRegistry {
	return &classRegistry{
		entries:  make(map[nkom.CLSID]nkom.ClassFactory),
		capacity: capacity,
	}
}

// validateClasses rejects class lists no factory may advertise: empty lists,
// the pure-virtual marker, and duplicates within the list itself.
func validateClasses(classes []nkom.CLSID) error {
	if len(classes) == 0 {
		return errors.InvalidInput(errors.PhaseRegistry, "factory advertises no classes")
	}
	seen := make(map[nkom.CLSID]bool, len(classes))
	for _, id := range classes {
		if nkom.IsPureVirtual(id) {
			return errors.PureVirtual(errors.PhaseRegistry)
		}
		if seen[id] {
			return errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
				Class(nkom.DescribeCLSID(id)).
				Detail("factory advertises the same class twice").
				Build()
		}
		seen[id] = true
	}
	return nil
}

// install registers every class in classes to f, all or nothing. The caller
// has already taken one factory reference per class; install gives them back
// only by failing.
func (cr *classRegistry) install(f nkom.ClassFactory, classes []nkom.CLSID) error {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	var conflicts []errors.ClassConflict
	for _, id := range classes {
		if _, exists := cr.entries[id]; exists {
			name, _ := nkom.ClassName(id)
			conflicts = append(conflicts, errors.ClassConflict{ClsID: id.String(), Name: name})
		}
	}
	if len(conflicts) > 0 {
		return errors.New(errors.PhaseRegistry, errors.KindClassExists).
			Cause(errors.NewConflictError(conflicts)).
			Detail("install rejected, no classes were registered").
			Build()
	}

	if cr.capacity > 0 && len(cr.entries)+len(classes) > cr.capacity {
		return errors.Capacity(errors.PhaseRegistry, len(cr.entries), cr.capacity)
	}

	for _, id := range classes {
		cr.entries[id] = f
	}
	return nil
}

// uninstall removes the classes registered to f and reports how many entries
// were erased. Classes advertised by f but registered to a different factory
// are left untouched.
func (cr *classRegistry) uninstall(f nkom.ClassFactory, classes []nkom.CLSID) int {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	removed := 0
	for _, id := range classes {
		if owner, ok := cr.entries[id]; ok && owner == f {
			delete(cr.entries, id)
			removed++
		}
	}
	return removed
}

// lookup resolves clsID to its factory with one reference added for the
// caller.
func (cr *classRegistry) lookup(clsID nkom.CLSID) (nkom.ClassFactory, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	f, ok := cr.entries[clsID]
	if !ok {
		return nil, false
	}
	f.AddRef()
	return f, true
}

// drain empties the registry and returns the evicted factories, one slot per
// erased entry. The caller releases them after the lock is gone.
func (cr *classRegistry) drain() []nkom.ClassFactory {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	evicted := make([]nkom.ClassFactory, 0, len(cr.entries))
	for id, f := range cr.entries {
		evicted = append(evicted, f)
		delete(cr.entries, id)
	}
	return evicted
}

// classes returns a sorted snapshot of every registered CLSID.
func (cr *classRegistry) classes() []nkom.CLSID {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	ids := make([]nkom.CLSID, 0, len(cr.entries))
	for id := range cr.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

func (cr *classRegistry) len() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.entries)
}
