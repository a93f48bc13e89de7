package runtime

import (
	"context"

	"go.uber.org/zap"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
)

// CreateInstance creates an instance of clsID and returns it through the
// interface named by iid, with exactly one reference owned by the caller.
//
// controlling is the aggregating outer object and is nil in the normal
// case. initParam is handed to Initialize when the class is initializable;
// classes that are not initializable get zero-valued state and initParam is
// ignored.
//
// The sequence is atomic in effect: on any failure the caller receives nil
// plus an error, no instance outlives the call, and the registry is
// unchanged.
func (r *Runtime) CreateInstance(ctx context.Context, clsID nkom.CLSID, controlling nkom.Object, iid nkom.IID, initParam any) (nkom.Object, error) {
	if err := r.ensureRunning(); err != nil {
		return nil, err
	}
	if nkom.IsPureVirtual(clsID) {
		return nil, errors.PureVirtual(errors.PhaseCreate)
	}

	factory, err := r.FactoryForClass(clsID)
	if err != nil {
		return nil, err
	}
	defer factory.Release()

	instance, err := factory.CreateInstance(ctx, clsID, controlling)
	if err != nil {
		return nil, err
	}

	if err := r.initialize(ctx, clsID, instance, initParam); err != nil {
		instance.Release()
		return nil, err
	}

	requested, err := instance.QueryInterface(iid)
	if err != nil {
		// The caller asked for an interface the new instance does not
		// serve; the creation reference is the only one, so this destroys
		// the instance.
		instance.Release()
		return nil, err
	}
	instance.Release()

	r.logger().Debug("instance created",
		zap.String("class", nkom.DescribeCLSID(clsID)),
		zap.String("interface", nkom.DescribeIID(iid)))
	return requested, nil
}

// initialize runs the optional second construction phase. Classes announce
// it by answering QueryInterface(IIDInitializable); a plain "not
// implemented" answer means single-phase construction and is not an error.
func (r *Runtime) initialize(ctx context.Context, clsID nkom.CLSID, instance nkom.Object, initParam any) error {
	obj, err := instance.QueryInterface(nkom.IIDInitializable)
	if err != nil {
		if errors.HasKind(err, errors.KindNotImplemented) || errors.HasKind(err, errors.KindUnknownInterface) {
			return nil
		}
		// The query itself broke (a provider trap, for example); that is a
		// creation failure, not an uninitializable class.
		return err
	}

	init, ok := obj.(nkom.Initializable)
	if !ok {
		obj.Release()
		return errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Class(nkom.DescribeCLSID(clsID)).
			Detail("class answered IIDInitializable with an object that cannot initialize").
			Build()
	}

	if err := init.Initialize(ctx, initParam); err != nil {
		obj.Release()
		return errors.InitFailed(nkom.DescribeCLSID(clsID), err)
	}
	obj.Release()
	return nil
}

// CreateAs is CreateInstance plus a Go-side assertion to the caller's
// interface type. On assertion failure the instance is released before the
// error returns.
func CreateAs[T any](ctx context.Context, r *Runtime, clsID nkom.CLSID, iid nkom.IID, initParam any) (T, error) {
	var zero T

	obj, err := r.CreateInstance(ctx, clsID, nil, iid, initParam)
	if err != nil {
		return zero, err
	}

	typed, ok := obj.(T)
	if !ok {
		obj.Release()
		return zero, errors.New(errors.PhaseCreate, errors.KindInvalidInput).
			Class(nkom.DescribeCLSID(clsID)).
			Interface(nkom.DescribeIID(iid)).
			Detail("created instance does not satisfy the requested Go type").
			Build()
	}
	return typed, nil
}
