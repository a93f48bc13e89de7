package wasm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/tetratelabs/wazero/api"
)

// Export names of the guest class ABI.
const (
	ExportMemory     = "memory"
	ExportAlloc      = "nk-alloc"
	ExportClassCount = "nk-class-count"
	ExportClassID    = "nk-class-id"
	ExportCreate     = "nk-create"
	ExportQuery      = "nk-query-interface"
	ExportInitialize = "nk-initialize"
	ExportDestroy    = "nk-destroy"
)

// requiredExports lists every function a guest must export. nk-initialize
// is the one optional export; its absence means the guest's classes are not
// initializable.
var requiredExports = []string{
	ExportAlloc,
	ExportClassCount,
	ExportClassID,
	ExportCreate,
	ExportQuery,
	ExportDestroy,
}

// exportSignatures gives the required type of each ABI function. Load
// rejects guests whose exports deviate, so the call helpers can trust the
// shape of every result.
var exportSignatures = map[string]struct {
	params  []api.ValueType
	results []api.ValueType
}{
	ExportAlloc:      {params: []api.ValueType{api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI32}},
	ExportClassCount: {params: nil, results: []api.ValueType{api.ValueTypeI32}},
	ExportClassID:    {params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, results: nil},
	ExportCreate:     {params: []api.ValueType{api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI64}},
	ExportQuery:      {params: []api.ValueType{api.ValueTypeI64, api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI32}},
	ExportInitialize: {params: []api.ValueType{api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI32}},
	ExportDestroy:    {params: []api.ValueType{api.ValueTypeI64}, results: nil},
}

// uuidSize is the byte width of a CLSID or IID on the wire.
const uuidSize = 16

// maxClassCount caps how large an advertised class table the host will
// read, so a corrupt guest cannot make Load loop without bound.
const maxClassCount = 1024

// Init params cross the boundary as canonical CBOR for deterministic,
// language-neutral bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wasm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeInitParam renders an initialization parameter in the form guests
// receive it. Exposed so guest authors can test their decoders against the
// exact host encoding.
func EncodeInitParam(param any) ([]byte, error) {
	return cborEncMode.Marshal(param)
}
