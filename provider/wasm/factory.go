package wasm

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// Config holds configuration for loading a guest module.
type Config struct {
	// Logger overrides the package logger for this factory.
	Logger *zap.Logger

	// Name labels the factory in logs and diagnostics. Defaults to "guest".
	Name string

	// MemoryLimitPages caps guest memory in 64KB pages.
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// Interfaces the factory object itself answers for.
var factoryIIDs = []nkom.IID{nkom.IIDObject, nkom.IIDClassFactory}

// Factory is a class factory whose classes live inside a WebAssembly guest
// module. Each factory owns a private wazero runtime, so separate guests
// cannot observe each other. All guest calls are serialized by one mutex.
type Factory struct {
	refs nkom.RefCount
	name string
	log  *zap.Logger

	runtime wazero.Runtime
	mod     api.Module
	mem     api.Memory

	allocFn   api.Function
	createFn  api.Function
	queryFn   api.Function
	initFn    api.Function // nil when the guest exports no nk-initialize
	destroyFn api.Function

	// Advertised class table in guest order. Immutable after Load.
	classes []nkom.CLSID

	mu      sync.Mutex
	handles *handleSet
	closed  atomic.Bool
}

// Load compiles and instantiates a guest module and reads its advertised
// class table. The returned factory carries one reference owned by the
// caller. Loading is all-or-nothing: any ABI violation tears the guest down
// and returns a bad_guest error.
func Load(ctx context.Context, wasmBytes []byte, cfg *Config) (*Factory, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	name := "guest"
	log := Logger()
	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Name != "" {
			name = cfg.Name
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.BadGuest("module does not compile", err)
	}

	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, errors.BadGuest("module does not instantiate", err)
	}

	f := &Factory{
		name:    name,
		log:     log,
		runtime: runtime,
		mod:     mod,
		handles: newHandleSet(),
	}
	f.refs.Inc()

	if err := f.bindExports(); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}
	if err := f.readClassTable(ctx); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}

	log.Debug("guest factory loaded",
		zap.String("name", name),
		zap.Int("classes", len(f.classes)),
		zap.Bool("initializable", f.initFn != nil))

	return f, nil
}

// bindExports checks the guest's exports against the ABI and caches the
// function handles.
func (f *Factory) bindExports() error {
	f.mem = f.mod.Memory()
	if f.mem == nil {
		return errors.BadGuest("missing required export: "+ExportMemory, nil)
	}

	for _, name := range requiredExports {
		if err := f.verifyExport(name); err != nil {
			return err
		}
	}

	f.allocFn = f.mod.ExportedFunction(ExportAlloc)
	f.createFn = f.mod.ExportedFunction(ExportCreate)
	f.queryFn = f.mod.ExportedFunction(ExportQuery)
	f.destroyFn = f.mod.ExportedFunction(ExportDestroy)

	if f.mod.ExportedFunction(ExportInitialize) != nil {
		if err := f.verifyExport(ExportInitialize); err != nil {
			return err
		}
		f.initFn = f.mod.ExportedFunction(ExportInitialize)
	}
	return nil
}

func (f *Factory) verifyExport(name string) error {
	fn := f.mod.ExportedFunction(name)
	if fn == nil {
		return errors.BadGuest("missing required export: "+name, nil)
	}
	want := exportSignatures[name]
	def := fn.Definition()
	if !slices.Equal(def.ParamTypes(), want.params) || !slices.Equal(def.ResultTypes(), want.results) {
		return errors.BadGuest("export "+name+" has the wrong signature", nil)
	}
	return nil
}

// readClassTable enumerates the guest's classes through nk-class-count and
// nk-class-id into a scratch buffer the guest allocates.
func (f *Factory) readClassTable(ctx context.Context) error {
	countFn := f.mod.ExportedFunction(ExportClassCount)
	classIDFn := f.mod.ExportedFunction(ExportClassID)

	res, err := countFn.Call(ctx)
	if err != nil {
		return errors.BadGuest(ExportClassCount+" trapped", err)
	}
	count := int(int32(res[0]))
	if count <= 0 {
		return errors.BadGuest("guest advertises no classes", nil)
	}
	if count > maxClassCount {
		return errors.BadGuest(fmt.Sprintf("guest advertises %d classes, limit is %d", count, maxClassCount), nil)
	}

	ptr, err := f.alloc(ctx, uuidSize)
	if err != nil {
		return err
	}

	classes := make([]nkom.CLSID, 0, count)
	seen := make(map[nkom.CLSID]struct{}, count)
	for i := 0; i < count; i++ {
		if _, err := classIDFn.Call(ctx, uint64(uint32(i)), uint64(ptr)); err != nil {
			return errors.BadGuest(fmt.Sprintf("%s(%d) trapped", ExportClassID, i), err)
		}
		raw, ok := f.mem.Read(ptr, uuidSize)
		if !ok {
			return errors.BadGuest(fmt.Sprintf("%s(%d) buffer out of bounds", ExportClassID, i), nil)
		}
		var cls nkom.CLSID
		copy(cls[:], raw)
		if cls.IsZero() {
			return errors.BadGuest(fmt.Sprintf("class %d is the pure-virtual marker", i), nil)
		}
		if _, dup := seen[cls]; dup {
			return errors.BadGuest("class table repeats "+cls.String(), nil)
		}
		seen[cls] = struct{}{}
		classes = append(classes, cls)
	}
	f.classes = classes
	return nil
}

// QueryInterface implements nkom.Object. The factory is a host-side object:
// it answers for Object and ClassFactory without consulting the guest.
func (f *Factory) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(f, factoryIIDs, iid)
}

// AddRef implements nkom.Object.
func (f *Factory) AddRef() int32 {
	return f.refs.Inc()
}

// Release implements nkom.Object. Dropping the last reference closes the
// guest module.
func (f *Factory) Release() int32 {
	n := f.refs.Dec()
	if n == 0 {
		if err := f.Close(context.Background()); err != nil {
			f.log.Warn("guest close failed",
				zap.String("name", f.name),
				zap.Error(err))
		}
	}
	return n
}

// InstantiableClasses implements nkom.ClassFactory. The returned slice is a
// copy in guest table order.
func (f *Factory) InstantiableClasses() []nkom.CLSID {
	out := make([]nkom.CLSID, len(f.classes))
	copy(out, f.classes)
	return out
}

// CreateInstance implements nkom.ClassFactory. Guest classes never support
// aggregation: the guest knows nothing about host object identity.
func (f *Factory) CreateInstance(ctx context.Context, clsID nkom.CLSID, controlling nkom.Object) (nkom.Object, error) {
	if nkom.IsPureVirtual(clsID) {
		return nil, errors.PureVirtual(errors.PhaseFactory)
	}
	if !slices.Contains(f.classes, clsID) {
		return nil, errors.UnknownClass(errors.PhaseFactory, nkom.DescribeCLSID(clsID))
	}
	if controlling != nil {
		return nil, errors.NoAggregation(errors.PhaseFactory, nkom.DescribeCLSID(clsID))
	}

	handle, err := f.callCreate(ctx, clsID)
	if err != nil {
		return nil, err
	}

	// The instance pins the factory until its final release.
	f.AddRef()

	inst := &Instance{
		factory: f,
		class:   clsID,
		handle:  handle,
		asked:   make(map[nkom.IID]bool),
	}
	inst.refs.Inc()
	return inst, nil
}

// LiveHandles reports how many guest instances currently have a live host
// wrapper. Useful for leak checks in tests and tooling.
func (f *Factory) LiveHandles() int {
	return f.handles.len()
}

// Name returns the label given at load time.
func (f *Factory) Name() string {
	return f.name
}

// Close tears the guest down. Instances still alive are destroyed guest-side
// first; their host wrappers stay usable for Release but nothing else. Close
// is idempotent and safe to call concurrently with guest operations.
func (f *Factory) Close(ctx context.Context) error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs error

	f.mu.Lock()
	leftover := f.handles.drain()
	for _, h := range leftover {
		if _, err := f.destroyFn.Call(ctx, h); err != nil {
			errs = multierr.Append(errs, errors.BadGuest(fmt.Sprintf("destroy handle %d during close", h), err))
		}
	}
	f.mu.Unlock()

	if err := f.runtime.Close(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if len(leftover) > 0 {
		f.log.Warn("guest closed with live instances",
			zap.String("name", f.name),
			zap.Int("leaked", len(leftover)))
	}
	return errs
}

func (f *Factory) errClosed() *errors.Error {
	return errors.New(errors.PhaseProvider, errors.KindNotInitialized).
		Detail("guest module %s is closed", f.name).
		Build()
}

// alloc asks the guest for n bytes of scratch memory. Guest allocators
// signal exhaustion by returning the null pointer. Callers hold f.mu or run
// during Load before the factory is shared.
func (f *Factory) alloc(ctx context.Context, n uint32) (uint32, error) {
	res, err := f.allocFn.Call(ctx, uint64(n))
	if err != nil {
		return 0, errors.BadGuest(ExportAlloc+" trapped", err)
	}
	ptr := uint32(res[0])
	if ptr == 0 {
		return 0, errors.New(errors.PhaseProvider, errors.KindCapacity).
			Detail("guest allocator out of memory for %d bytes", n).
			Build()
	}
	return ptr, nil
}

// writeBytes copies data into fresh guest memory and returns its address.
func (f *Factory) writeBytes(ctx context.Context, data []byte) (uint32, error) {
	ptr, err := f.alloc(ctx, uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if !f.mem.Write(ptr, data) {
		return 0, errors.BadGuest("allocator returned an out-of-bounds pointer", nil)
	}
	return ptr, nil
}

// callCreate passes the class ID to the guest and returns the fresh handle.
// Handle zero from the guest means it is out of resources.
func (f *Factory) callCreate(ctx context.Context, clsID nkom.CLSID) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return 0, f.errClosed()
	}

	ptr, err := f.writeBytes(ctx, clsID[:])
	if err != nil {
		return 0, err
	}
	res, err := f.createFn.Call(ctx, uint64(ptr))
	if err != nil {
		return 0, errors.BadGuest(ExportCreate+" trapped", err)
	}
	handle := res[0]
	if handle == 0 {
		return 0, errors.New(errors.PhaseProvider, errors.KindCapacity).
			Class(nkom.DescribeCLSID(clsID)).
			Detail("guest out of resources for a new instance").
			Build()
	}

	// Register under the same lock so a concurrent Close drains this handle.
	f.handles.insert(handle)
	return handle, nil
}

// callQuery asks the guest whether handle implements iid. A nonzero answer
// means yes.
func (f *Factory) callQuery(ctx context.Context, handle uint64, iid nkom.IID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return false, f.errClosed()
	}

	ptr, err := f.writeBytes(ctx, iid[:])
	if err != nil {
		return false, err
	}
	res, err := f.queryFn.Call(ctx, handle, uint64(ptr))
	if err != nil {
		return false, errors.BadGuest(ExportQuery+" trapped", err)
	}
	return int32(res[0]) != 0, nil
}

// callInitialize hands the encoded parameter to the guest. A nonzero guest
// code becomes an init_failed error carrying that code.
func (f *Factory) callInitialize(ctx context.Context, handle uint64, class nkom.CLSID, param []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return f.errClosed()
	}

	ptr, err := f.writeBytes(ctx, param)
	if err != nil {
		return err
	}
	res, err := f.initFn.Call(ctx, handle, uint64(ptr), uint64(uint32(len(param))))
	if err != nil {
		return errors.BadGuest(ExportInitialize+" trapped", err)
	}
	if code := int32(res[0]); code != 0 {
		return errors.New(errors.PhaseProvider, errors.KindInitFailed).
			Class(nkom.DescribeCLSID(class)).
			Value(code).
			Detail("guest rejected initialization with code %d", code).
			Build()
	}
	return nil
}

// destroyHandle releases one guest handle. After Close the guest is gone and
// only host-side bookkeeping remains.
func (f *Factory) destroyHandle(ctx context.Context, handle uint64) {
	f.handles.remove(handle)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed.Load() {
		return
	}
	if _, err := f.destroyFn.Call(ctx, handle); err != nil {
		f.log.Warn("guest destroy trapped",
			zap.String("name", f.name),
			zap.Uint64("handle", handle),
			zap.Error(err))
	}
}
