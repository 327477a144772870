package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/viant/vecdelta/internal/f16"
)

// DType identifies the stored element type of a Vector.
type DType uint8

const (
	// F32 stores IEEE-754 binary32 elements, 4 bytes each, little-endian.
	F32 DType = 1
	// F16 stores IEEE-754 binary16 elements, 2 bytes each, little-endian.
	F16 DType = 2
)

// Size returns the encoded width of one element in bytes, or 0 for an
// unknown type.
func (d DType) Size() int {
	switch d {
	case F32:
		return 4
	case F16:
		return 2
	}
	return 0
}

// Valid reports whether d is a known element type.
func (d DType) Valid() bool { return d.Size() > 0 }

func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F16:
		return "f16"
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// ParseDType parses a dtype name as produced by String.
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "float32", "":
		return F32, nil
	case "f16", "float16", "half":
		return F16, nil
	}
	return 0, fmt.Errorf("embedding: unknown dtype %q", s)
}

// decode reads one element from b, widened to float32.
func (d DType) decode(b []byte) float32 {
	switch d {
	case F32:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case F16:
		return f16.ToFloat32(f16.Bits(binary.LittleEndian.Uint16(b)))
	}
	return 0
}

// encode writes v into b using the element width of d.
func (d DType) encode(b []byte, v float32) {
	switch d {
	case F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case F16:
		binary.LittleEndian.PutUint16(b, uint16(f16.FromFloat32(v)))
	}
}
