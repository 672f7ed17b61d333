package compress

// NoOp passes annotation/user-data payloads through unchanged. Used when a
// writer is configured for format.CompressionNone.
type NoOp struct{}

var _ Codec = NoOp{}

func (NoOp) Compress(data []byte) ([]byte, error) { return data, nil }

func (NoOp) Decompress(data []byte) ([]byte, error) { return data, nil }
