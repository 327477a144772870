package vecsync

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte{0, 0, 128, 63}, 256)
	random := []byte{7, 1, 99, 3, 250}

	var testCases = []struct {
		description string
		payload     []byte
		compression Compression
		expectCodec Compression
	}{
		{description: "none", payload: compressible, compression: CompressionNone, expectCodec: CompressionNone},
		{description: "lz4", payload: compressible, compression: CompressionLZ4, expectCodec: CompressionLZ4},
		{description: "zstd", payload: compressible, compression: CompressionZSTD, expectCodec: CompressionZSTD},
		{description: "lz4 incompressible", payload: random, compression: CompressionLZ4, expectCodec: CompressionNone},
		{description: "zstd incompressible", payload: random, compression: CompressionZSTD, expectCodec: CompressionNone},
		{description: "empty", payload: nil, compression: CompressionZSTD, expectCodec: CompressionNone},
	}
	for _, testCase := range testCases {
		frame, err := EncodeFrame(testCase.payload, testCase.compression)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, byte(testCase.expectCodec), frame[0], testCase.description)
		if testCase.expectCodec != CompressionNone {
			assert.Less(t, len(frame), len(testCase.payload), testCase.description)
		}
		got, err := DecodeFrame(frame)
		require.NoError(t, err, testCase.description)
		assert.Equal(t, len(testCase.payload), len(got), testCase.description)
		assert.True(t, bytes.Equal(testCase.payload, got), testCase.description)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	var testCases = []struct {
		description string
		frame       []byte
	}{
		{description: "short header", frame: []byte{0, 1}},
		{description: "length mismatch", frame: []byte{0, 3, 0, 0, 0, 1, 2}},
		{description: "unknown codec", frame: []byte{9, 0, 0, 0, 0}},
		{description: "oversized", frame: []byte{0, 0xff, 0xff, 0xff, 0xff}},
		{description: "bad zstd", frame: []byte{2, 4, 0, 0, 0, 1, 2, 3, 4}},
	}
	for _, testCase := range testCases {
		_, err := DecodeFrame(testCase.frame)
		assert.ErrorIs(t, err, ErrInvalidFrame, testCase.description)
	}
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	got, err := ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, got)
	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}

func TestEncodeFrame_UnknownCompression(t *testing.T) {
	_, err := EncodeFrame([]byte{1}, Compression(7))
	assert.Error(t, err)
}

func TestDecodeFrame_ZstdBombRejected(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates more than MaxFrameSize")
	}
	enc := getZstdEncoder()
	body := enc.EncodeAll(make([]byte, MaxFrameSize+1), nil)
	zstdEncoderPool.Put(enc)

	frame := make([]byte, frameHeaderSize+len(body))
	frame[0] = byte(CompressionZSTD)
	frame[1] = 16 // declares 16 bytes
	copy(frame[frameHeaderSize:], body)

	_, err := DecodeFrame(frame)
	assert.ErrorIs(t, err, ErrInvalidFrame)
}
