package compress

// Zstd compresses annotation and user-data payloads with zstd. The
// implementation backing Compress/Decompress is chosen by build tag (see
// zstd_pure.go and zstd_cgo.go); the type itself stays in this untagged
// file so it is always defined regardless of which implementation is
// compiled in.
type Zstd struct{}

var _ Codec = Zstd{}
