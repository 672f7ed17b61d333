// Package compress provides the payload codecs applied to ANNOTATION and
// USER_DATA chunks. Every other chunk kind (DATA, SUMMARY, INDEX, UTC)
// stays uncompressed on disk so the round-trip fidelity invariant holds
// bit-for-bit without this package being involved at all; annotations and
// user payloads carry no such requirement, so they get the benefit of a
// pluggable general-purpose codec the way a columnar time-series blob
// format compresses its encoded payloads as a second stage after encoding.
package compress

import (
	"fmt"

	"github.com/em-foundation/jls/format"
)

// Compressor compresses a chunk payload before it is framed.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a compressed chunk payload to its original bytes.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions for one compression algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// New returns the Codec for kind.
func New(kind format.CompressionType) (Codec, error) {
	switch kind {
	case format.CompressionNone:
		return NoOp{}, nil
	case format.CompressionZstd:
		return Zstd{}, nil
	case format.CompressionS2:
		return S2{}, nil
	case format.CompressionLZ4:
		return LZ4{}, nil
	default:
		return nil, fmt.Errorf("jls: unsupported compression kind: %s", kind)
	}
}
