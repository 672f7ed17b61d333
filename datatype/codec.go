// Package datatype packs and unpacks samples across jls's fixed- and
// sub-byte sample widths, and defines the promotion rules that lift every
// sample type to a uniform in-memory carrier. Every sample — however
// narrow on disk — is carried in memory as a uint64 bit pattern; packing
// to and from that narrow width happens only at this I/O boundary,
// mirroring how a columnar time-series format's encoding package keeps one
// physical representation internally and converts only when touching the
// wire.
package datatype

import (
	"math"

	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
)

// BitWidth returns the number of bits a single sample of dt occupies.
func BitWidth(dt format.DataType) int {
	switch dt {
	case format.DataTypeU1:
		return 1
	case format.DataTypeU4, format.DataTypeI4:
		return 4
	case format.DataTypeU8, format.DataTypeI8:
		return 8
	case format.DataTypeU16, format.DataTypeI16:
		return 16
	case format.DataTypeU24, format.DataTypeI24:
		return 24
	case format.DataTypeU32, format.DataTypeI32, format.DataTypeF32:
		return 32
	case format.DataTypeU64, format.DataTypeI64, format.DataTypeF64:
		return 64
	default:
		return 0
	}
}

// ByteLen returns the number of bytes needed to hold count samples of dt
// starting at a byte-aligned (bit offset 0) boundary.
func ByteLen(dt format.DataType, count int) int {
	bits := BitWidth(dt) * count
	return (bits + 7) / 8
}

// SampleCount returns how many samples of dt fit in a byte-aligned payload
// of the given length, i.e. the inverse of ByteLen.
func SampleCount(dt format.DataType, payloadBytes int) int {
	width := BitWidth(dt)
	if width == 0 {
		return 0
	}

	return (payloadBytes * 8) / width
}

// PackedByteLen returns the number of bytes needed to hold count samples of
// dt starting at the given bit offset within the first byte.
func PackedByteLen(dt format.DataType, count int, bitOffset int) int {
	total := bitOffset + BitWidth(dt)*count
	return (total + 7) / 8
}

// CheckAlignment validates that, for sub-byte types (U1/U4),
// samplesPerData * bit_width is a multiple of 8 so that a DATA chunk's
// payload ends on a byte boundary.
func CheckAlignment(dt format.DataType, samplesPerData int) error {
	width := BitWidth(dt)
	if width >= 8 {
		return nil
	}
	if (samplesPerData*width)%8 != 0 {
		return errs.ErrBitWidthAlignment
	}

	return nil
}

// signExtend sign-extends the low `width` bits of v (a signed field read
// as an unsigned bit pattern) into a full int64.
func signExtend(v uint64, width int) int64 {
	if width >= 64 {
		return int64(v) //nolint: gosec
	}
	shift := uint(64 - width)

	return int64(v<<shift) >> shift //nolint: gosec
}

// narrow truncates a signed 64-bit value down to its low `width` bits,
// ready for packing.
func narrow(v int64, width int) uint64 {
	if width >= 64 {
		return uint64(v) //nolint: gosec
	}

	return uint64(v) & (uint64(1)<<uint(width) - 1) //nolint: gosec
}

// setBits writes the low `width` bits of value into dst starting at
// absolute bit position bitOffset, least-significant bit first — the
// little-endian-within-the-byte ordering every sub-byte field uses.
func setBits(dst []byte, bitOffset, width int, value uint64) {
	for i := 0; i < width; i++ {
		abs := bitOffset + i
		byteIdx, bitIdx := abs/8, uint(abs%8)
		if (value>>uint(i))&1 != 0 {
			dst[byteIdx] |= 1 << bitIdx
		} else {
			dst[byteIdx] &^= 1 << bitIdx
		}
	}
}

// getBits reads `width` bits from src starting at absolute bit position
// bitOffset, reconstructing a little-endian-within-the-byte value.
func getBits(src []byte, bitOffset, width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		abs := bitOffset + i
		byteIdx, bitIdx := abs/8, uint(abs%8)
		bit := (src[byteIdx] >> bitIdx) & 1
		v |= uint64(bit) << uint(i)
	}

	return v
}

// Pack writes len(values) samples of dt into dst starting at dstBitOffset.
// Each value is the uint64 carrier form described in the package doc: for
// signed types it is uint64(int64Value); for float types it is the IEEE
// bit pattern; dst must already be sized via PackedByteLen.
func Pack(dt format.DataType, values []uint64, dst []byte, dstBitOffset int) {
	width := BitWidth(dt)
	for i, v := range values {
		setBits(dst, dstBitOffset+i*width, width, v)
	}
}

// Unpack reads count samples of dt from src starting at srcBitOffset,
// returning each as its uint64 carrier form. For signed types, the top bit
// of the packed field is sign-extended into the wider uint64 container.
func Unpack(dt format.DataType, src []byte, srcBitOffset int, count int) []uint64 {
	width := BitWidth(dt)
	out := make([]uint64, count)
	signed := dt.IsSigned()
	for i := range out {
		raw := getBits(src, srcBitOffset+i*width, width)
		if signed {
			raw = uint64(signExtend(raw, width)) //nolint: gosec
		}
		out[i] = raw
	}

	return out
}

// ToFloat64 promotes a sample's uint64 carrier form to its real-domain
// value (U1 -> {0.0,1.0}, a signed type -> its int64 value -> f64, etc).
// This is the single place that promotion is implemented so the
// statistics accumulator and summarization cascade never special-case a
// data type directly.
func ToFloat64(dt format.DataType, carrier uint64) float64 {
	switch dt {
	case format.DataTypeF32:
		return float64(math.Float32frombits(uint32(carrier))) //nolint: gosec
	case format.DataTypeF64:
		return math.Float64frombits(carrier)
	case format.DataTypeU1:
		if carrier != 0 {
			return 1.0
		}

		return 0.0
	default:
		if dt.IsSigned() {
			return float64(signExtend(carrier, BitWidth(dt)))
		}

		return float64(carrier)
	}
}

// FromFloat64 packs a real-domain value back into dt's uint64 carrier
// form. Used when materializing fill values and when a writer accepts
// float64 input for an integer-typed signal.
func FromFloat64(dt format.DataType, v float64) uint64 {
	switch dt {
	case format.DataTypeF32:
		return uint64(math.Float32bits(float32(v)))
	case format.DataTypeF64:
		return math.Float64bits(v)
	case format.DataTypeU1:
		if v != 0 {
			return 1
		}

		return 0
	default:
		if dt.IsSigned() {
			return uint64(signExtend(narrow(int64(v), BitWidth(dt)), BitWidth(dt))) //nolint: gosec
		}

		return narrow(int64(v), BitWidth(dt)) & (uint64(1)<<uint(BitWidth(dt)) - 1)
	}
}

// FillValue returns the carrier value a skipped sample range is filled
// with for dt: NaN for floats, 0 for U1 (no out-of-band third state fits
// in a single bit), and the type's minimum representable value for other
// integers.
func FillValue(dt format.DataType) uint64 {
	switch dt {
	case format.DataTypeF32:
		return uint64(math.Float32bits(float32(math.NaN())))
	case format.DataTypeF64:
		return math.Float64bits(math.NaN())
	case format.DataTypeU1:
		return 0 // no third state for a single bit; treated as absent by callers tracking skip ranges
	default:
		width := BitWidth(dt)
		if dt.IsSigned() {
			min := -(int64(1) << uint(width-1))

			return uint64(min) //nolint: gosec
		}

		return 0
	}
}
