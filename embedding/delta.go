package embedding

import (
	"bytes"
	"fmt"
)

// DeltaChange replaces the element at Index with Value.
type DeltaChange struct {
	Index uint32
	Value float32
}

// VectorDelta is a detached patch between two vectors of the same shape.
// Changes are ordered by strictly ascending Index.
//
// BaseID correlates the delta with the base version it patches. It is set
// by the caller and carried through Encode/Decode untouched; Apply does not
// check it.
type VectorDelta struct {
	BaseID  uint64
	DType   DType
	Changes []DeltaChange
}

// FromVectors computes the changes that turn base into target. Elements are
// compared on their stored bytes, so Apply reproduces target exactly,
// including signed zeros and NaN payloads.
func FromVectors(base, target Vector, baseID uint64) (*VectorDelta, error) {
	if base.Dim != target.Dim {
		return nil, fmt.Errorf("%w: base has %d elements, target %d", ErrDimensionMismatch, base.Dim, target.Dim)
	}
	if base.DType != target.DType {
		return nil, fmt.Errorf("%w: base is %v, target %v", ErrTypeMismatch, base.DType, target.DType)
	}
	if base.Dim == 0 {
		return nil, fmt.Errorf("%w: empty vectors", ErrDimensionMismatch)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	delta := &VectorDelta{BaseID: baseID, DType: base.DType}
	for i := 0; i < int(base.Dim); i++ {
		if bytes.Equal(base.element(i), target.element(i)) {
			continue
		}
		delta.Changes = append(delta.Changes, DeltaChange{Index: uint32(i), Value: target.At(i)})
	}
	return delta, nil
}

// Apply returns a copy of base with every change written in. base is not
// modified. The caller is responsible for pairing the delta with the base
// version named by BaseID.
func (d *VectorDelta) Apply(base Vector) (Vector, error) {
	if base.DType != d.elemType() {
		return Vector{}, fmt.Errorf("%w: delta is %v, base %v", ErrTypeMismatch, d.elemType(), base.DType)
	}
	if err := base.Validate(); err != nil {
		return Vector{}, err
	}
	if base.Dim == 0 {
		return Vector{}, fmt.Errorf("%w: empty base vector", ErrDimensionMismatch)
	}
	size := base.DType.Size()
	data := make([]byte, len(base.Data))
	copy(data, base.Data)
	for _, c := range d.Changes {
		if c.Index >= base.Dim {
			return Vector{}, fmt.Errorf("%w: change index %d outside base of %d elements", ErrDimensionMismatch, c.Index, base.Dim)
		}
		base.DType.encode(data[int(c.Index)*size:], c.Value)
	}
	return Vector{Dim: base.Dim, DType: base.DType, Data: data}, nil
}

// Indices returns the changed positions in delta order.
func (d *VectorDelta) Indices() []uint32 {
	out := make([]uint32, len(d.Changes))
	for i, c := range d.Changes {
		out[i] = c.Index
	}
	return out
}

// ChangeRatio returns the fraction of dim elements touched by the delta.
func (d *VectorDelta) ChangeRatio(dim uint32) float64 {
	if dim == 0 {
		return 0
	}
	return float64(len(d.Changes)) / float64(dim)
}

// Equal reports whether d and o carry the same base id, element type and
// changes in the same order. Values are compared bit for bit.
func (d *VectorDelta) Equal(o *VectorDelta) bool {
	if d.BaseID != o.BaseID || d.elemType() != o.elemType() || len(d.Changes) != len(o.Changes) {
		return false
	}
	t := d.elemType()
	a := make([]byte, t.Size())
	b := make([]byte, t.Size())
	for i := range d.Changes {
		if d.Changes[i].Index != o.Changes[i].Index {
			return false
		}
		t.encode(a, d.Changes[i].Value)
		t.encode(b, o.Changes[i].Value)
		if !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}

// elemType treats the zero DType as F32 so hand-built deltas default to the
// common case.
func (d *VectorDelta) elemType() DType {
	if d.DType == 0 {
		return F32
	}
	return d.DType
}
