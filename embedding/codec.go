package embedding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoded delta layout, all fields little-endian:
//
//	offset 0   base_id       uint64
//	offset 8   change_count  uint32
//	offset 12  changes       change_count x (index uint32, value [DType.Size()]byte)
//
// An F32 entry is 8 bytes. The element type is not stored; readers pick it
// with DecodeType.
const (
	HeaderSize = 12
	indexSize  = 4
)

// EntrySize returns the encoded width of one change for dtype.
func EntrySize(dtype DType) int { return indexSize + dtype.Size() }

// EncodedSize returns the length of the buffer Encode produces.
func (d *VectorDelta) EncodedSize() int {
	return HeaderSize + len(d.Changes)*EntrySize(d.elemType())
}

// Encode serializes d. The output is deterministic for a given value.
func (d *VectorDelta) Encode() ([]byte, error) {
	dtype := d.elemType()
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrEncode, ErrUnsupportedType)
	}
	if uint64(len(d.Changes)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d changes exceed count field", ErrEncode, len(d.Changes))
	}
	entry := EntrySize(dtype)
	out := make([]byte, d.EncodedSize())
	binary.LittleEndian.PutUint64(out[0:8], d.BaseID)
	binary.LittleEndian.PutUint32(out[8:12], uint32(len(d.Changes)))
	off := HeaderSize
	for i, c := range d.Changes {
		if i > 0 && c.Index <= d.Changes[i-1].Index {
			return nil, fmt.Errorf("%w: change %d index %d not after %d", ErrEncode, i, c.Index, d.Changes[i-1].Index)
		}
		binary.LittleEndian.PutUint32(out[off:], c.Index)
		dtype.encode(out[off+indexSize:], c.Value)
		off += entry
	}
	return out, nil
}

// Decode parses an F32 delta produced by Encode.
func Decode(b []byte) (*VectorDelta, error) {
	return DecodeType(b, F32)
}

// DecodeType parses a delta whose values are stored as dtype. The buffer
// length must match the header exactly; a count that implies more data
// than supplied is reported as truncated. Change order is kept as encoded.
func DecodeType(b []byte, dtype DType) (*VectorDelta, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, dtype)
	}
	if len(b) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncatedInput, len(b), HeaderSize)
	}
	count := binary.LittleEndian.Uint32(b[8:12])
	entry := EntrySize(dtype)
	want := uint64(HeaderSize) + uint64(count)*uint64(entry)
	switch {
	case uint64(len(b)) < want:
		return nil, fmt.Errorf("%w: %d bytes for %d changes, want %d", ErrTruncatedInput, len(b), count, want)
	case uint64(len(b)) > want:
		return nil, fmt.Errorf("%w: %d bytes for %d changes, want %d", ErrTrailingData, len(b), count, want)
	}
	delta := &VectorDelta{
		BaseID: binary.LittleEndian.Uint64(b[0:8]),
		DType:  dtype,
	}
	if count > 0 {
		delta.Changes = make([]DeltaChange, count)
	}
	off := HeaderSize
	for i := range delta.Changes {
		delta.Changes[i] = DeltaChange{
			Index: binary.LittleEndian.Uint32(b[off:]),
			Value: dtype.decode(b[off+indexSize:]),
		}
		off += entry
	}
	return delta, nil
}
