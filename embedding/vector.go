package embedding

import (
	"bytes"
	"fmt"
)

// Vector is a fixed-dimension typed numeric buffer such as a model
// embedding. Data holds Dim elements of DType, little-endian, back to back.
// Vectors are treated as immutable; operations return new values.
type Vector struct {
	Dim   uint32
	DType DType
	Data  []byte
}

// FromF32 builds an F32 vector from values. An empty input yields Dim 0.
func FromF32(values []float32) Vector {
	return fromValues(F32, values)
}

// FromF16 builds an F16 vector, narrowing each value to binary16.
func FromF16(values []float32) Vector {
	return fromValues(F16, values)
}

func fromValues(dtype DType, values []float32) Vector {
	size := dtype.Size()
	data := make([]byte, len(values)*size)
	for i, v := range values {
		dtype.encode(data[i*size:], v)
	}
	return Vector{Dim: uint32(len(values)), DType: dtype, Data: data}
}

// At returns element i widened to float32.
func (v Vector) At(i int) float32 {
	size := v.DType.Size()
	return v.DType.decode(v.Data[i*size:])
}

// Float32s returns all elements widened to float32.
func (v Vector) Float32s() []float32 {
	out := make([]float32, v.Dim)
	for i := range out {
		out[i] = v.At(i)
	}
	return out
}

// Equal reports whether v and o have the same dimension, element type and
// stored bytes.
func (v Vector) Equal(o Vector) bool {
	return v.Dim == o.Dim && v.DType == o.DType && bytes.Equal(v.Data, o.Data)
}

// Validate checks the length invariant of v.
func (v Vector) Validate() error {
	if !v.DType.Valid() {
		return fmt.Errorf("%w: %v", ErrUnsupportedType, v.DType)
	}
	if want := int(v.Dim) * v.DType.Size(); len(v.Data) != want {
		return fmt.Errorf("%w: %d bytes for %d x %v, want %d", ErrInvalidVector, len(v.Data), v.Dim, v.DType, want)
	}
	return nil
}

func (v Vector) element(i int) []byte {
	size := v.DType.Size()
	return v.Data[i*size : (i+1)*size]
}
