package compress

import "github.com/klauspost/compress/s2"

// S2 compresses with klauspost/compress's Snappy-compatible S2 format: fast
// with a good-enough ratio for annotation text and user-data blobs on the
// write path of a hot ingest loop.
type S2 struct{}

var _ Codec = S2{}

func (S2) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

func (S2) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
