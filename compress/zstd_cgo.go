//go:build nobuild

package compress

// Dormant cgo-backed alternative to zstd_pure.go, kept as reference for a
// deployment that links against libzstd directly for the extra
// compression-ratio headroom gozstd's bindings offer. Not part of any
// default build (see the build tag above) since this module ships no cgo
// toolchain requirement by default.

import "github.com/valyala/gozstd"

func (Zstd) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

func (Zstd) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}
