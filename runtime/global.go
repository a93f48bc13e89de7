package runtime

import (
	"context"

	nkom "github.com/noriko-engine/nkom-runtime"
)

// defaultRuntime backs the package-level API for programs that want the
// classic process-wide surface.
var defaultRuntime = New()

// Default returns the process-wide runtime behind the package-level
// functions.
func Default() *Runtime {
	return defaultRuntime
}

// Initialize starts the default runtime.
func Initialize() (bool, error) {
	return defaultRuntime.Initialize()
}

// Uninitialize stops the default runtime.
func Uninitialize() (bool, error) {
	return defaultRuntime.Uninitialize()
}

// InstallClassFactory installs a factory into the default runtime.
func InstallClassFactory(f nkom.ClassFactory) error {
	return defaultRuntime.InstallClassFactory(f)
}

// UninstallClassFactory removes a factory from the default runtime.
func UninstallClassFactory(f nkom.ClassFactory) error {
	return defaultRuntime.UninstallClassFactory(f)
}

// FactoryForClass resolves a factory in the default runtime.
func FactoryForClass(clsID nkom.CLSID) (nkom.ClassFactory, error) {
	return defaultRuntime.FactoryForClass(clsID)
}

// CreateInstance creates an instance in the default runtime.
func CreateInstance(ctx context.Context, clsID nkom.CLSID, controlling nkom.Object, iid nkom.IID, initParam any) (nkom.Object, error) {
	return defaultRuntime.CreateInstance(ctx, clsID, controlling, iid, initParam)
}
