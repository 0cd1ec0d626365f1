package snapshot

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the per-section compression algorithm.
type Compression uint8

const (
	// CompressionNone stores sections raw.
	CompressionNone Compression = 0
	// CompressionLZ4 favors decode speed over ratio.
	CompressionLZ4 Compression = 1
	// CompressionZSTD favors ratio and is the default.
	CompressionZSTD Compression = 2
)

func (c Compression) valid() bool { return c <= CompressionZSTD }

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// zstd encoders and decoders are expensive to construct, so they are pooled.
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

	dec, _ := zstd.NewReader(nil)

	return dec
}

// Compressed sections carry an 8-byte block header:
//
//	[UncompressedSize uint32][CompressedSize uint32][data...]
//
// CompressedSize == 0 marks a section stored raw because compression did
// not pay off. CompressionNone sections carry no block header at all.
const blockHeaderSize = 8

// storedRatio is the compression ratio above which a section is stored raw.
const storedRatio = 0.9

func compressSection(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	if len(data) > math.MaxUint32 {
		return nil, fmt.Errorf("snapshot: section of %d bytes exceeds the format limit", len(data))
	}

	var (
		compressed []byte
		err        error
	)

	switch c {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("snapshot: unknown compression %d", c)
	}

	if err != nil {
		return nil, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*storedRatio {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0)
		copy(result[blockHeaderSize:], data)

		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)

	return result, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 { // incompressible
		return nil, nil
	}

	return compressed[:n], nil
}

func decompressSection(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	if len(data) < blockHeaderSize {
		return nil, fmt.Errorf("section of %d bytes is smaller than its block header", len(data))
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[0:])
	compressedSize := binary.LittleEndian.Uint32(data[4:])

	if compressedSize == 0 {
		if uint64(len(data)) != blockHeaderSize+uint64(uncompressedSize) {
			return nil, fmt.Errorf("stored section length does not match its header")
		}

		return data[blockHeaderSize:], nil
	}

	if uint64(len(data)) != blockHeaderSize+uint64(compressedSize) {
		return nil, fmt.Errorf("compressed section length does not match its header")
	}

	compressed := data[blockHeaderSize:]

	switch c {
	case CompressionLZ4:
		result := make([]byte, uncompressedSize)

		n, err := lz4.UncompressBlock(compressed, result)
		if err != nil {
			return nil, err
		}

		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("decompressed %d bytes, header says %d", n, uncompressedSize)
		}

		return result, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, err
		}

		if uint32(len(decoded)) != uncompressedSize {
			return nil, fmt.Errorf("decompressed %d bytes, header says %d", len(decoded), uncompressedSize)
		}

		return decoded, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", c)
	}
}
