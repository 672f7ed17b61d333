package datatype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-foundation/jls/format"
)

func TestBitWidth(t *testing.T) {
	cases := []struct {
		dt   format.DataType
		bits int
	}{
		{format.DataTypeU1, 1},
		{format.DataTypeU4, 4},
		{format.DataTypeI4, 4},
		{format.DataTypeU8, 8},
		{format.DataTypeU24, 24},
		{format.DataTypeI24, 24},
		{format.DataTypeF32, 32},
		{format.DataTypeF64, 64},
	}
	for _, c := range cases {
		assert.Equal(t, c.bits, BitWidth(c.dt))
	}
}

func TestCheckAlignment(t *testing.T) {
	require.NoError(t, CheckAlignment(format.DataTypeU1, 8))
	require.Error(t, CheckAlignment(format.DataTypeU1, 3))
	require.NoError(t, CheckAlignment(format.DataTypeU4, 2))
	require.Error(t, CheckAlignment(format.DataTypeU4, 1))
	require.NoError(t, CheckAlignment(format.DataTypeU8, 1))
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, dt := range []format.DataType{
		format.DataTypeU1, format.DataTypeU4, format.DataTypeI4,
		format.DataTypeU24, format.DataTypeI24, format.DataTypeU32, format.DataTypeI32,
	} {
		width := BitWidth(dt)
		max := uint64(1)<<uint(width) - 1
		values := []uint64{0, max, max / 2}

		dst := make([]byte, PackedByteLen(dt, len(values), 3))
		Pack(dt, values, dst, 3)
		got := Unpack(dt, dst, 3, len(values))

		for i, v := range values {
			want := v
			if format.DataType(dt).IsSigned() {
				want = uint64(signExtend(v, width)) //nolint: gosec
			}
			assert.Equal(t, want, got[i], "dt=%s idx=%d", dt, i)
		}
	}
}

func TestUnpackBitOffsetAllSetU1(t *testing.T) {
	// 1024 bits all set -> 128 bytes of 0xFF
	src := make([]byte, 128)
	for i := range src {
		src[i] = 0xFF
	}

	got := Unpack(format.DataTypeU1, src, 64, 64)
	var word uint64
	for i, v := range got {
		word |= v << uint(i)
	}
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF_FFFF), word)
}

func TestToFloat64Promotion(t *testing.T) {
	assert.Equal(t, 1.0, ToFloat64(format.DataTypeU1, 1))
	assert.Equal(t, 0.0, ToFloat64(format.DataTypeU1, 0))
	assert.Equal(t, -1.0, ToFloat64(format.DataTypeI8, uint64(narrow(-1, 8))))

	f32 := float32(3.5)
	assert.Equal(t, float64(f32), ToFloat64(format.DataTypeF32, uint64(math.Float32bits(f32))))
}

func TestFillValue(t *testing.T) {
	assert.True(t, math.IsNaN(math.Float32frombits(uint32(FillValue(format.DataTypeF32))))) //nolint: gosec
	assert.True(t, math.IsNaN(math.Float64frombits(FillValue(format.DataTypeF64))))
	assert.Equal(t, uint64(0), FillValue(format.DataTypeU1))

	min := int64(signExtend(FillValue(format.DataTypeI8), 8))
	assert.Equal(t, int64(-128), min)
}

func TestSampleCountIsByteLenInverse(t *testing.T) {
	cases := []struct {
		dt format.DataType
		n  int
	}{
		{format.DataTypeU1, 40}, // byte-aligned count so ByteLen has no rounding slack
		{format.DataTypeU8, 37},
		{format.DataTypeF32, 37},
	}
	for _, c := range cases {
		bl := ByteLen(c.dt, c.n)
		assert.Equal(t, c.n, SampleCount(c.dt, bl))
	}
}
