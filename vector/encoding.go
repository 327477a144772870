package vector

import (
	"fmt"

	"github.com/viant/vecdelta/embedding"
)

// DecodeVector wraps a stored BLOB as a vector of the given element type.
// The blob is copied so the result does not alias driver memory.
func DecodeVector(b []byte, dtype embedding.DType) (embedding.Vector, error) {
	size := dtype.Size()
	if size == 0 {
		return embedding.Vector{}, fmt.Errorf("vector: unsupported dtype %v", dtype)
	}
	if len(b)%size != 0 {
		return embedding.Vector{}, fmt.Errorf("vector: invalid %v blob length %d", dtype, len(b))
	}
	data := make([]byte, len(b))
	copy(data, b)
	return embedding.Vector{Dim: uint32(len(b) / size), DType: dtype, Data: data}, nil
}
