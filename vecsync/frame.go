package vecsync

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how log payloads are framed.
type Compression uint8

const (
	// CompressionNone stores payloads as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression.
	CompressionZSTD Compression = 2
)

const (
	frameHeaderSize = 5
	// MaxFrameSize bounds the declared uncompressed size of a frame.
	MaxFrameSize = 64 << 20
)

// ErrInvalidFrame is returned when a frame cannot be decoded.
var ErrInvalidFrame = errors.New("vecsync: invalid frame")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression parses "none", "lz4" or "zstd". Empty means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	}
	return 0, fmt.Errorf("vecsync: unknown compression %q", s)
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize))
	return dec
}

// EncodeFrame wraps payload as [codec u8][raw length u32 LE][body]. When
// compression does not shrink the payload the frame is stored uncompressed
// and tagged CompressionNone.
func EncodeFrame(payload []byte, c Compression) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("vecsync: payload of %d bytes exceeds frame limit", len(payload))
	}
	body := payload
	used := CompressionNone
	switch c {
	case CompressionNone:
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return nil, err
		}
		if n > 0 && n < len(payload) {
			body, used = buf[:n], CompressionLZ4
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed := enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
		if len(compressed) < len(payload) {
			body, used = compressed, CompressionZSTD
		}
	default:
		return nil, fmt.Errorf("vecsync: unsupported compression %v", c)
	}
	out := make([]byte, frameHeaderSize+len(body))
	out[0] = byte(used)
	binary.LittleEndian.PutUint32(out[1:], uint32(len(payload)))
	copy(out[frameHeaderSize:], body)
	return out, nil
}

// DecodeFrame returns the payload stored in a frame built by EncodeFrame.
func DecodeFrame(frame []byte) ([]byte, error) {
	if len(frame) < frameHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(frame))
	}
	size := binary.LittleEndian.Uint32(frame[1:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: declared size %d exceeds limit", ErrInvalidFrame, size)
	}
	body := frame[frameHeaderSize:]
	switch Compression(frame[0]) {
	case CompressionNone:
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: body %d bytes, declared %d", ErrInvalidFrame, len(body), size)
		}
		out := make([]byte, size)
		copy(out, body)
		return out, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: lz4 produced %d bytes, declared %d", ErrInvalidFrame, n, size)
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		if uint32(len(out)) != size {
			return nil, fmt.Errorf("%w: zstd produced %d bytes, declared %d", ErrInvalidFrame, len(out), size)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown codec %d", ErrInvalidFrame, frame[0])
}
