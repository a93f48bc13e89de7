package main

import (
	"context"
	"fmt"
	"sync"

	nkom "github.com/noriko-engine/nkom-runtime"
	"github.com/noriko-engine/nkom-runtime/errors"
	"github.com/noriko-engine/nkom-runtime/factory"
)

// Demo identities, installed with -demo so the inspector has something to
// play with when no providers are configured.
var (
	iidClock   = nkom.DeclareIID("3f2c7a9e-51b4-4dd0-8a4e-00e2ad6fcb51", "demo.Clock")
	iidJournal = nkom.DeclareIID("c7bd0b0f-9c1e-4f56-9f0a-7b8f2f6f2e88", "demo.Journal")

	clsClock   = nkom.DeclareCLSID("6a1e2d3c-4b5f-4a69-8c7d-9e0f1a2b3c4d", "demo.Clock")
	clsJournal = nkom.DeclareCLSID("0d9c8b7a-6f5e-4d3c-9b2a-190807060504", "demo.Journal")
)

// clock is a single-phase demo class.
type clock struct {
	refs nkom.RefCount
}

func (c *clock) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(c, []nkom.IID{nkom.IIDObject, iidClock}, iid)
}

func (c *clock) AddRef() int32  { return c.refs.Inc() }
func (c *clock) Release() int32 { return c.refs.Dec() }

// journal is a two-phase demo class. Its initializer accepts an optional
// string tag and rejects everything else, so the inspector can show both
// initialization outcomes.
type journal struct {
	refs nkom.RefCount

	mu  sync.Mutex
	tag string
}

func (j *journal) QueryInterface(iid nkom.IID) (nkom.Object, error) {
	return nkom.QueryByIndex(j, []nkom.IID{nkom.IIDObject, nkom.IIDInitializable, iidJournal}, iid)
}

func (j *journal) AddRef() int32  { return j.refs.Inc() }
func (j *journal) Release() int32 { return j.refs.Dec() }

func (j *journal) Initialize(_ context.Context, param any) error {
	tag, ok := param.(string)
	if param != nil && !ok {
		return errors.InvalidInput(errors.PhaseFactory, fmt.Sprintf("journal wants a string tag, got %T", param))
	}
	j.mu.Lock()
	j.tag = tag
	j.mu.Unlock()
	return nil
}

// demoFactory builds the static factory behind -demo.
func demoFactory() nkom.ClassFactory {
	return factory.MustStatic(
		factory.Class{
			ID:   clsClock,
			Name: "demo.Clock",
			New: func(nkom.Object) nkom.Object {
				c := &clock{}
				c.refs.Inc()
				return c
			},
		},
		factory.Class{
			ID:   clsJournal,
			Name: "demo.Journal",
			New: func(nkom.Object) nkom.Object {
				j := &journal{}
				j.refs.Inc()
				return j
			},
		},
	)
}
