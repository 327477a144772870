package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecdelta/embedding"
)

func TestDecodeVector(t *testing.T) {
	src := embedding.FromF16([]float32{1, 2, 3})
	v, err := DecodeVector(src.Data, embedding.F16)
	require.NoError(t, err)
	assert.True(t, v.Equal(src))
	src.Data[0] ^= 0xff
	assert.False(t, v.Equal(src), "decoded vector must not alias the blob")

	f32 := embedding.FromF32([]float32{0, 1.5, -2.25})
	v, err = DecodeVector(f32.Data, embedding.F32)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1.5, -2.25}, v.Float32s())

	_, err = DecodeVector([]byte{1, 2, 3}, embedding.F16)
	assert.Error(t, err)
	_, err = DecodeVector(src.Data, embedding.DType(0))
	assert.Error(t, err)
}
