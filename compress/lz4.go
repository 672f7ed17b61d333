package compress

import (
	"encoding/binary"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances; the type carries
// internal match-finder state worth reusing across many small annotation
// payloads.
var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// LZ4 compresses with pierrec/lz4's block format. Block mode doesn't
// self-describe the decompressed size, so Compress prefixes a 4-byte
// little-endian original length ahead of the compressed block;
// Decompress reads it back out to size its destination buffer exactly.
type LZ4 struct{}

var _ Codec = LZ4{}

func (LZ4) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(dst[:4], uint32(len(data))) //nolint: gosec

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst[4:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// incompressible input: lz4 declines, store raw with length 0 as a
		// "stored" marker so Decompress can tell the two cases apart.
		out := make([]byte, 4+len(data))
		binary.LittleEndian.PutUint32(out[:4], 0)
		copy(out[4:], data)

		return out, nil
	}

	return dst[:4+n], nil
}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	origLen := binary.LittleEndian.Uint32(data[:4])
	if origLen == 0 {
		out := make([]byte, len(data)-4)
		copy(out, data[4:])

		return out, nil
	}

	dst := make([]byte, origLen)
	n, err := lz4.UncompressBlock(data[4:], dst)
	if err != nil {
		return nil, err
	}

	return dst[:n], nil
}
