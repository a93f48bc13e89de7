package wasm

import (
	"bytes"
	"testing"
)

func TestEncodeInitParam_Canonical(t *testing.T) {
	// Canonical CBOR sorts map keys, so the same map always encodes to the
	// same bytes regardless of Go's iteration order.
	want := []byte{0xA2, 0x61, 'a', 0x01, 0x61, 'b', 0x02}
	for i := 0; i < 8; i++ {
		got, err := EncodeInitParam(map[string]int{"b": 2, "a": 1})
		if err != nil {
			t.Fatalf("EncodeInitParam: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("encoding #%d = %x, want %x", i, got, want)
		}
	}
}

func TestEncodeInitParam_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		param any
		want  []byte
	}{
		{"nil", nil, []byte{0xF6}},
		{"true", true, []byte{0xF5}},
		{"small int", int64(7), []byte{0x07}},
		{"text", "hi", []byte{0x62, 'h', 'i'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeInitParam(tt.param)
			if err != nil {
				t.Fatalf("EncodeInitParam: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeInitParam(%v) = %x, want %x", tt.param, got, tt.want)
			}
		})
	}
}

func TestEncodeInitParam_RejectsUnencodable(t *testing.T) {
	if _, err := EncodeInitParam(func() {}); err == nil {
		t.Error("EncodeInitParam accepted a function value")
	}
}
