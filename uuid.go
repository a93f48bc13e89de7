package nkom

import (
	"github.com/google/uuid"

	"github.com/noriko-engine/nkom-runtime/errors"
)

// UUID is a 128-bit identifier used for both interface IDs and class IDs.
// It is a plain value type: == is exact bitwise comparison, and the zero
// value is the nil UUID.
type UUID [16]byte

// IID names an interface contract.
type IID = UUID

// CLSID names a concrete class implementation.
type CLSID = UUID

// NilUUID is the all-zero UUID. Used as a CLSID it is the pure-virtual
// marker: "no default implementation creatable directly".
var NilUUID UUID

// ParseUUID parses the canonical 8-4-4-4-12 textual form.
func ParseUUID(s string) (UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NilUUID, errors.InvalidUUID(s, err)
	}
	return UUID(u), nil
}

// MustUUID parses s and panics on malformed input. Intended for package-level
// identifier constants, where a bad literal is a programmer error.
func MustUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NewUUID returns a random (version 4) UUID.
func NewUUID() UUID {
	return UUID(uuid.New())
}

// String returns the canonical 8-4-4-4-12 textual form. String and ParseUUID
// round-trip exactly.
func (u UUID) String() string {
	return uuid.UUID(u).String()
}

// IsZero reports whether u is the nil UUID.
func (u UUID) IsZero() bool {
	return u == NilUUID
}

// IsPureVirtual reports whether id is the all-zero pure-virtual marker.
func IsPureVirtual(id UUID) bool {
	return id == NilUUID
}
