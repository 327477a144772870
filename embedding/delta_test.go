package embedding

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromF32(t *testing.T) {
	v := FromF32([]float32{0.1, 0.2, 0.3})
	assert.Equal(t, uint32(3), v.Dim)
	assert.Equal(t, F32, v.DType)
	assert.Len(t, v.Data, 12)
	assert.Equal(t, []byte{0xcd, 0xcc, 0xcc, 0x3d}, v.Data[0:4], "0.1f little-endian")
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, v.Float32s())
	require.NoError(t, v.Validate())

	empty := FromF32(nil)
	assert.Equal(t, uint32(0), empty.Dim)
	assert.Empty(t, empty.Data)
}

func TestFromVectors_Scenario(t *testing.T) {
	a := FromF32([]float32{0.1, 0.2, 0.3, 0.4, 0.5})
	b := FromF32([]float32{0.1, 0.25, 0.3, 0.45, 0.5})

	delta, err := FromVectors(a, b, 0)
	require.NoError(t, err)
	assert.Equal(t, []DeltaChange{{Index: 1, Value: 0.25}, {Index: 3, Value: 0.45}}, delta.Changes)

	updated, err := delta.Apply(a)
	require.NoError(t, err)
	assert.True(t, updated.Equal(b))
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4, 0.5}, a.Float32s(), "base must be untouched")

	encoded, err := delta.Encode()
	require.NoError(t, err)
	assert.Len(t, encoded, HeaderSize+2*8)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), decoded.BaseID)
	assert.Equal(t, delta.Changes, decoded.Changes)
}

func TestFromVectors_Identical(t *testing.T) {
	a := FromF32([]float32{0.1, 0.2, 0.3, 0.4, 0.5})
	delta, err := FromVectors(a, a, 7)
	require.NoError(t, err)
	assert.Empty(t, delta.Changes)

	encoded, err := delta.Encode()
	require.NoError(t, err)
	assert.Len(t, encoded, HeaderSize)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), decoded.BaseID)
	assert.Empty(t, decoded.Changes)
}

func TestFromVectors_Errors(t *testing.T) {
	_, err := FromVectors(FromF32([]float32{1, 2, 3}), FromF32([]float32{1, 2, 3, 4}), 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = FromVectors(FromF32([]float32{1, 2}), FromF16([]float32{1, 2}), 0)
	assert.ErrorIs(t, err, ErrTypeMismatch)

	_, err = FromVectors(FromF32(nil), FromF32(nil), 0)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	broken := Vector{Dim: 2, DType: F32, Data: make([]byte, 7)}
	_, err = FromVectors(broken, FromF32([]float32{1, 2}), 0)
	assert.ErrorIs(t, err, ErrInvalidVector)
}

func TestApply_Errors(t *testing.T) {
	base := FromF32([]float32{1, 2, 3})

	out := &VectorDelta{Changes: []DeltaChange{{Index: 3, Value: 1}}}
	_, err := out.Apply(base)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	half := &VectorDelta{DType: F16}
	_, err = half.Apply(base)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestFromVectors_BitExact(t *testing.T) {
	negZero := float32(math.Copysign(0, -1))
	nan := math.Float32frombits(0x7fc00001)
	a := FromF32([]float32{0, 1, nan})
	b := FromF32([]float32{negZero, 1, math.Float32frombits(0x7fc00002)})

	delta, err := FromVectors(a, b, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, delta.Indices(), "signed zero and NaN payload differ bitwise")

	got, err := delta.Apply(a)
	require.NoError(t, err)
	assert.Equal(t, b.Data, got.Data)

	// binary16 signalling NaN 0x7C01 must not come back quieted
	ha := FromF16([]float32{1, 2})
	hb := FromF16([]float32{1, 2})
	hb.Data[2], hb.Data[3] = 0x01, 0x7c
	delta, err = FromVectors(ha, hb, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, delta.Indices())
	got, err = delta.Apply(ha)
	require.NoError(t, err)
	assert.Equal(t, hb.Data, got.Data)

	encoded, err := delta.Encode()
	require.NoError(t, err)
	decoded, err := DecodeType(encoded, F16)
	require.NoError(t, err)
	got, err = decoded.Apply(ha)
	require.NoError(t, err)
	assert.Equal(t, hb.Data, got.Data)
}

func TestRoundTripProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 200; n++ {
		dim := 1 + rng.Intn(64)
		av := make([]float32, dim)
		bv := make([]float32, dim)
		for i := range av {
			av[i] = rng.Float32()
			bv[i] = av[i]
			if rng.Intn(3) == 0 {
				bv[i] = rng.Float32()
			}
		}
		for _, dtype := range []DType{F32, F16} {
			a, b := fromValues(dtype, av), fromValues(dtype, bv)
			id := rng.Uint64()

			delta, err := FromVectors(a, b, id)
			require.NoError(t, err)
			for i := 1; i < len(delta.Changes); i++ {
				require.Less(t, delta.Changes[i-1].Index, delta.Changes[i].Index)
			}

			got, err := delta.Apply(a)
			require.NoError(t, err)
			require.True(t, got.Equal(b), "apply(from_vectors(a,b), a) == b for %v dim %d", dtype, dim)

			same, err := FromVectors(a, a, id)
			require.NoError(t, err)
			require.Empty(t, same.Changes)

			encoded, err := delta.Encode()
			require.NoError(t, err)
			require.Len(t, encoded, delta.EncodedSize())
			decoded, err := DecodeType(encoded, dtype)
			require.NoError(t, err)
			require.True(t, delta.Equal(decoded))
		}
	}
}

func TestChangeRatio(t *testing.T) {
	d := &VectorDelta{Changes: []DeltaChange{{Index: 0}, {Index: 5}}}
	assert.InDelta(t, 0.2, d.ChangeRatio(10), 1e-12)
	assert.Zero(t, d.ChangeRatio(0))
}
