package wasm

import (
	"testing"

	nkom "github.com/noriko-engine/nkom-runtime"
)

// Test identities. The test guest dispatches on the first byte of each UUID,
// so every identifier below starts with a distinct tag byte.
var (
	clsAlpha = nkom.DeclareCLSID("a1a1a1a1-0000-4000-8000-00000000a1a1", "guesttest.Alpha")
	clsBeta  = nkom.DeclareCLSID("b2b2b2b2-0000-4000-8000-0000000000b2", "guesttest.Beta")
	clsGamma = nkom.DeclareCLSID("c3c3c3c3-0000-4000-8000-0000000000c3", "guesttest.Gamma")

	iidGreeter = nkom.DeclareIID("51515151-0000-4000-8000-000000000051", "guesttest.Greeter")
	iidCloser  = nkom.DeclareIID("52525252-0000-4000-8000-000000000052", "guesttest.Closer")

	// Never declared, never known to the guest.
	iidStranger = nkom.MustUUID("deadbeef-0000-4000-8000-00000000dead")
)

// guestSpec configures the assembled test guest.
//
// The guest implements the class ABI over a bump allocator. Its class table
// is whatever spec.classes says; nk-create recognizes the 0xA1 (Alpha) and
// 0xB2 (Beta) tag bytes and returns handle zero for anything else, so an
// advertised Gamma class exercises the out-of-resources path. Handles encode
// the class in their low two bits. nk-query-interface answers yes to 0x51
// for both classes and to 0x52 for Beta only. nk-initialize fails with code
// 7 when the parameter is the single CBOR byte 0xF5 (true). The guest counts
// nk-query-interface and nk-destroy calls in exported globals "queries" and
// "destroyed".
type guestSpec struct {
	classes   []nkom.CLSID
	withInit  bool
	omit      map[string]bool   // export names to leave out
	misexport map[string]uint32 // export name to wrong function index
}

// ULEB128.
func uleb(n uint64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if n == 0 {
			return out
		}
	}
}

// SLEB128.
func sleb(n int64) []byte {
	var out []byte
	for {
		b := byte(n & 0x7F)
		n >>= 7
		done := (n == 0 && b&0x40 == 0) || (n == -1 && b&0x40 != 0)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func section(id byte, contents []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(contents))), contents)
}

func encName(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func funcType(params, results []byte) []byte {
	return cat([]byte{0x60}, uleb(uint64(len(params))), params, uleb(uint64(len(results))), results)
}

// funcBody wraps locals and code into a size-prefixed code entry.
func funcBody(locals, code []byte) []byte {
	body := cat(locals, code, []byte{0x0B})
	return cat(uleb(uint64(len(body))), body)
}

var (
	noLocals    = []byte{0x00}
	oneI32Local = []byte{0x01, 0x01, 0x7F}
)

// buildGuest assembles a core wasm module implementing the class ABI.
func buildGuest(spec guestSpec) []byte {
	const (
		i32 = 0x7F
		i64 = 0x7E
	)

	types := cat(
		uleb(7),
		funcType([]byte{i32}, []byte{i32}),           // 0: nk-alloc
		funcType(nil, []byte{i32}),                   // 1: nk-class-count
		funcType([]byte{i32, i32}, nil),              // 2: nk-class-id
		funcType([]byte{i32}, []byte{i64}),           // 3: nk-create
		funcType([]byte{i64, i32}, []byte{i32}),      // 4: nk-query-interface
		funcType([]byte{i64, i32, i32}, []byte{i32}), // 5: nk-initialize
		funcType([]byte{i64}, nil),                   // 6: nk-destroy
	)

	funcs := cat(uleb(7), uleb(0), uleb(1), uleb(2), uleb(3), uleb(4), uleb(5), uleb(6))

	// One memory, 2 pages, no max. The class table sits at offset 16 and the
	// bump allocator starts at 1024, above any realistic table.
	mems := cat(uleb(1), []byte{0x00}, uleb(2))

	globals := cat(
		uleb(4),
		[]byte{i32, 0x01, 0x41}, sleb(1024), []byte{0x0B}, // 0: heap
		[]byte{i32, 0x01, 0x41}, sleb(1), []byte{0x0B}, // 1: next handle
		[]byte{i32, 0x01, 0x41}, sleb(0), []byte{0x0B}, // 2: destroyed count
		[]byte{i32, 0x01, 0x41}, sleb(0), []byte{0x0B}, // 3: query count
	)

	// nk-alloc: return heap, then heap += size.
	alloc := funcBody(noLocals, cat(
		[]byte{0x23, 0x00}, // global.get $heap
		[]byte{0x23, 0x00}, // global.get $heap
		[]byte{0x20, 0x00}, // local.get $size
		[]byte{0x6A},       // i32.add
		[]byte{0x24, 0x00}, // global.set $heap
	))

	classCount := funcBody(noLocals, cat(
		[]byte{0x41}, sleb(int64(len(spec.classes))), // i32.const <count>
	))

	// nk-class-id: copy 16 bytes from 16+idx*16 to dst.
	classID := funcBody(noLocals, cat(
		[]byte{0x20, 0x01},             // local.get $dst
		[]byte{0x20, 0x00},             // local.get $idx
		[]byte{0x41}, sleb(16),         // i32.const 16
		[]byte{0x6C},                   // i32.mul
		[]byte{0x41}, sleb(16),         // i32.const 16
		[]byte{0x6A},                   // i32.add
		[]byte{0x41}, sleb(16),         // i32.const 16
		[]byte{0xFC, 0x0A, 0x00, 0x00}, // memory.copy
	))

	// mintHandle pushes (next << 2) | classIdx and bumps next.
	mintHandle := func(classIdx int64) []byte {
		return cat(
			[]byte{0x23, 0x01},           // global.get $next
			[]byte{0xAD},                 // i64.extend_i32_u
			[]byte{0x42}, sleb(2),        // i64.const 2
			[]byte{0x86},                 // i64.shl
			[]byte{0x42}, sleb(classIdx), // i64.const <classIdx>
			[]byte{0x84},                 // i64.or
			[]byte{0x23, 0x01},           // global.get $next
			[]byte{0x41}, sleb(1),        // i32.const 1
			[]byte{0x6A},                 // i32.add
			[]byte{0x24, 0x01},           // global.set $next
		)
	}

	// nk-create: dispatch on the first byte of the class ID.
	create := funcBody(oneI32Local, cat(
		[]byte{0x20, 0x00},       // local.get $clsPtr
		[]byte{0x2D, 0x00, 0x00}, // i32.load8_u
		[]byte{0x21, 0x01},       // local.set $tag
		[]byte{0x20, 0x01},       // local.get $tag
		[]byte{0x41}, sleb(0xA1), // i32.const 0xA1
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i64},        // if (result i64)
		mintHandle(1),
		[]byte{0x05},             // else
		[]byte{0x20, 0x01},       // local.get $tag
		[]byte{0x41}, sleb(0xB2), // i32.const 0xB2
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i64},        // if (result i64)
		mintHandle(2),
		[]byte{0x05},          // else
		[]byte{0x42}, sleb(0), // i64.const 0
		[]byte{0x0B},          // end
		[]byte{0x0B},          // end
	))

	// nk-query-interface: count the call, then dispatch on the IID tag byte.
	query := funcBody(oneI32Local, cat(
		[]byte{0x23, 0x03},       // global.get $queries
		[]byte{0x41}, sleb(1),    // i32.const 1
		[]byte{0x6A},             // i32.add
		[]byte{0x24, 0x03},       // global.set $queries
		[]byte{0x20, 0x01},       // local.get $iidPtr
		[]byte{0x2D, 0x00, 0x00}, // i32.load8_u
		[]byte{0x21, 0x02},       // local.set $tag
		[]byte{0x20, 0x02},       // local.get $tag
		[]byte{0x41}, sleb(0x51), // i32.const 0x51
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i32},        // if (result i32)
		[]byte{0x41}, sleb(1),    // i32.const 1
		[]byte{0x05},             // else
		[]byte{0x20, 0x02},       // local.get $tag
		[]byte{0x41}, sleb(0x52), // i32.const 0x52
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i32},        // if (result i32)
		[]byte{0x20, 0x00},       // local.get $handle
		[]byte{0xA7},             // i32.wrap_i64
		[]byte{0x41}, sleb(3),    // i32.const 3
		[]byte{0x71},             // i32.and
		[]byte{0x41}, sleb(2),    // i32.const 2
		[]byte{0x46},             // i32.eq
		[]byte{0x05},             // else
		[]byte{0x41}, sleb(0),    // i32.const 0
		[]byte{0x0B},             // end
		[]byte{0x0B},             // end
	))

	// nk-initialize: fail with code 7 on the single CBOR byte 0xF5 (true).
	initialize := funcBody(noLocals, cat(
		[]byte{0x20, 0x02},       // local.get $len
		[]byte{0x41}, sleb(1),    // i32.const 1
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i32},        // if (result i32)
		[]byte{0x20, 0x01},       // local.get $ptr
		[]byte{0x2D, 0x00, 0x00}, // i32.load8_u
		[]byte{0x41}, sleb(0xF5), // i32.const 0xF5
		[]byte{0x46},             // i32.eq
		[]byte{0x04, i32},        // if (result i32)
		[]byte{0x41}, sleb(7),    // i32.const 7
		[]byte{0x05},             // else
		[]byte{0x41}, sleb(0),    // i32.const 0
		[]byte{0x0B},             // end
		[]byte{0x05},             // else
		[]byte{0x41}, sleb(0),    // i32.const 0
		[]byte{0x0B},             // end
	))

	// nk-destroy: count the call.
	destroy := funcBody(noLocals, cat(
		[]byte{0x23, 0x02},    // global.get $destroyed
		[]byte{0x41}, sleb(1), // i32.const 1
		[]byte{0x6A},          // i32.add
		[]byte{0x24, 0x02},    // global.set $destroyed
	))

	code := cat(uleb(7), alloc, classCount, classID, create, query, initialize, destroy)

	type export struct {
		name string
		kind byte
		idx  uint32
	}
	all := []export{
		{ExportMemory, 0x02, 0},
		{ExportAlloc, 0x00, 0},
		{ExportClassCount, 0x00, 1},
		{ExportClassID, 0x00, 2},
		{ExportCreate, 0x00, 3},
		{ExportQuery, 0x00, 4},
		{ExportDestroy, 0x00, 6},
		{"destroyed", 0x03, 2},
		{"queries", 0x03, 3},
	}
	if spec.withInit {
		all = append(all, export{ExportInitialize, 0x00, 5})
	}

	var kept []export
	for _, e := range all {
		if spec.omit[e.name] {
			continue
		}
		if idx, ok := spec.misexport[e.name]; ok {
			e.idx = idx
		}
		kept = append(kept, e)
	}
	exps := uleb(uint64(len(kept)))
	for _, e := range kept {
		exps = cat(exps, encName(e.name), []byte{e.kind}, uleb(uint64(e.idx)))
	}

	var table []byte
	for _, c := range spec.classes {
		table = append(table, c[:]...)
	}
	data := cat(
		uleb(1),
		[]byte{0x00},                         // active segment in memory 0
		[]byte{0x41}, sleb(16), []byte{0x0B}, // at offset 16
		uleb(uint64(len(table))), table,
	)

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6D}, // magic
		[]byte{0x01, 0x00, 0x00, 0x00}, // version
		section(1, types),
		section(3, funcs),
		section(5, mems),
		section(6, globals),
		section(7, exps),
		section(10, code),
		section(11, data),
	)
}

func demoGuest() []byte {
	return buildGuest(guestSpec{
		classes:  []nkom.CLSID{clsAlpha, clsBeta, clsGamma},
		withInit: true,
	})
}

func plainGuest() []byte {
	return buildGuest(guestSpec{
		classes: []nkom.CLSID{clsAlpha, clsBeta, clsGamma},
	})
}

// guestGlobal reads one of the guest's exported counters.
func guestGlobal(t *testing.T, f *Factory, name string) uint64 {
	t.Helper()
	g := f.mod.ExportedGlobal(name)
	if g == nil {
		t.Fatalf("guest does not export global %q", name)
	}
	return g.Get()
}
