package runtime

import (
	"sync/atomic"

	"go.uber.org/zap"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// Runtime is an NkOM runtime context: a class registry plus the creation
// protocol, bracketed by an explicit startup/shutdown lifecycle. Contexts
// are independent; a process may run several side by side.
type Runtime struct {
	registry *classRegistry
	log      *zap.Logger
	running  atomic.Bool
}

// Config carries optional Runtime settings.
type Config struct {
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger

	// Capacity bounds the number of registered classes. 0 means unbounded.
	Capacity int
}

// New creates a stopped runtime with default settings. Call Initialize
// before using it.
func New() *Runtime {
	return NewWithConfig(nil)
}

// NewWithConfig creates a stopped runtime with the given settings. A nil
// config means defaults.
func NewWithConfig(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Runtime{
		registry: newClassRegistry(cfg.Capacity),
		log:      cfg.Logger,
	}
}

func (r *Runtime) logger() *zap.Logger {
	if r.log != nil {
		return r.log
	}
	return Logger()
}

// Initialize starts the runtime. The bool reports whether this call
// performed the transition; a second Initialize is a no-op reporting false.
func (r *Runtime) Initialize() (bool, error) {
	if !r.running.CompareAndSwap(false, true) {
		return false, nil
	}
	r.logger().Debug("runtime initialized")
	return true, nil
}

// Uninitialize stops the runtime, clears the registry, and releases every
// held factory reference. Like Initialize it reports whether this call
// performed the transition. Outstanding instances are unaffected; they keep
// their own reference counts and die on their last Release.
func (r *Runtime) Uninitialize() (bool, error) {
	if !r.running.CompareAndSwap(true, false) {
		return false, nil
	}

	evicted := r.registry.drain()
	for _, f := range evicted {
		f.Release()
	}

	r.logger().Debug("runtime uninitialized", zap.Int("entries_released", len(evicted)))
	return true, nil
}

// Running reports whether the runtime is between Initialize and
// Uninitialize.
func (r *Runtime) Running() bool {
	return r.running.Load()
}

func (r *Runtime) ensureRunning() error {
	if !r.running.Load() {
		return errors.NotInitialized("runtime")
	}
	return nil
}

// InstallClassFactory registers every class the factory advertises, taking
// one factory reference per class. All-or-nothing: if any class is already
// registered or the registry lacks room, nothing is registered and the
// error reports why.
func (r *Runtime) InstallClassFactory(f nkom.ClassFactory) error {
	if err := r.ensureRunning(); err != nil {
		return err
	}
	if f == nil {
		return errors.InvalidInput(errors.PhaseRegistry, "factory is nil")
	}

	classes := snapshotClasses(f)
	if err := validateClasses(classes); err != nil {
		return err
	}

	// One reference per prospective entry, taken before the registry sees
	// the factory. A rejected install hands them straight back.
	for range classes {
		f.AddRef()
	}
	if err := r.registry.install(f, classes); err != nil {
		for range classes {
			f.Release()
		}
		return err
	}

	r.logger().Debug("factory installed",
		zap.Int("classes", len(classes)),
		zap.Int("registered", r.registry.len()))
	return nil
}

// UninstallClassFactory removes the factory's advertised classes from the
// registry, releasing one factory reference per removed entry. Classes
// registered by a different factory stay. Uninstalling a factory with no
// registered classes is a no-op.
func (r *Runtime) UninstallClassFactory(f nkom.ClassFactory) error {
	if err := r.ensureRunning(); err != nil {
		return err
	}
	if f == nil {
		return errors.InvalidInput(errors.PhaseRegistry, "factory is nil")
	}

	classes := snapshotClasses(f)
	removed := r.registry.uninstall(f, classes)
	for i := 0; i < removed; i++ {
		f.Release()
	}

	r.logger().Debug("factory uninstalled",
		zap.Int("removed", removed),
		zap.Int("registered", r.registry.len()))
	return nil
}

// FactoryForClass resolves the factory registered for clsID, with one
// factory reference added. The caller releases it.
func (r *Runtime) FactoryForClass(clsID nkom.CLSID) (nkom.ClassFactory, error) {
	if err := r.ensureRunning(); err != nil {
		return nil, err
	}

	f, ok := r.registry.lookup(clsID)
	if !ok {
		return nil, errors.ClassNotRegistered(nkom.DescribeCLSID(clsID))
	}
	return f, nil
}

// Classes returns a sorted snapshot of every registered CLSID.
func (r *Runtime) Classes() ([]nkom.CLSID, error) {
	if err := r.ensureRunning(); err != nil {
		return nil, err
	}
	return r.registry.classes(), nil
}

// snapshotClasses copies the factory's advertised list so later registry
// work never depends on the factory keeping the slice stable.
func snapshotClasses(f nkom.ClassFactory) []nkom.CLSID {
	advertised := f.InstantiableClasses()
	classes := make([]nkom.CLSID, len(advertised))
	copy(classes, advertised)
	return classes
}
