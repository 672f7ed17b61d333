package track

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/datatype"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
)

func openScratch(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "scratch.jls"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

// scratchStart is where the test chunk streams begin. A jls file keeps its
// 32-byte prologue at offset 0, and PrevOffset 0 means "no earlier chunk",
// so a chunk written at offset 0 would drop out of its chain.
const scratchStart = 32

func triangleWave(n int, period int) []float64 {
	out := make([]float64, n)
	half := period / 2
	for i := 0; i < n; i++ {
		p := i % period
		if p < half {
			out[i] = -1 + 2*float64(p)/float64(half)
		} else {
			out[i] = 1 - 2*float64(p-half)/float64(half)
		}
	}

	return out
}

func fsrSignal() *registry.Signal {
	return &registry.Signal{
		ID: 5, SourceID: 3,
		SignalType: format.SignalTypeFSR, DataType: format.DataTypeF32,
		SampleRate: 1000, SamplesPerData: 1000,
		SampleDecimateFactor: 100, EntriesPerSummary: 200,
		SummaryDecimateFactor: 100, AnnotationDecimateFactor: 100, UTCDecimateFactor: 100,
	}
}

func TestFSRTriangleRoundTripBatched(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewWriter(sig, cw)
	require.NoError(t, err)

	total := 937 * 1000
	wave := triangleWave(total, 1000)
	for i := 0; i < total; i += 937 {
		end := i + 937
		if end > total {
			end = total
		}
		require.NoError(t, w.WriteFloat64(int64(i), wave[i:end]))
	}
	require.NoError(t, w.Close())

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r, err := NewReader(sig, cr, dir)
	require.NoError(t, err)
	assert.EqualValues(t, total, r.Length())

	first, err := r.Read(0, 1000)
	require.NoError(t, err)
	for i, c := range first {
		assert.Equal(t, float64(float32(wave[i])), datatype.ToFloat64(format.DataTypeF32, c))
	}

	mid, err := r.Read(1999, 1002)
	require.NoError(t, err)
	for i, c := range mid {
		assert.Equal(t, float64(float32(wave[1999+i])), datatype.ToFloat64(format.DataTypeF32, c))
	}

	_, err = r.Read(-25, 10)
	require.Error(t, err)
}

func TestFSRSummaryPrecisionSingleBatch(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewWriter(sig, cw)
	require.NoError(t, err)

	total := 937 * 1000
	wave := triangleWave(total, 1000)
	require.NoError(t, w.WriteFloat64(0, wave))
	require.NoError(t, w.Close())

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r, err := NewReader(sig, cr, dir)
	require.NoError(t, err)

	results, err := r.Statistics(0, int64(total), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var sum float64
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, v := range wave {
		sum += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean := sum / float64(total)
	var ss float64
	for _, v := range wave {
		ss += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(ss / float64(total))

	got := results[0]
	assert.InDelta(t, mean, got.Mean, 1e-7)
	assert.InEpsilon(t, stddev, got.StdDev, 5e-4)
	assert.Equal(t, -1.0, got.Min)
	assert.InDelta(t, 1.0, got.Max, 1e-6)
	_ = maxV
	_ = minV
}

func TestU1BitOffsetRead(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := &registry.Signal{
		ID: 7, SourceID: 1,
		SignalType: format.SignalTypeFSR, DataType: format.DataTypeU1,
		SampleRate: 1, SamplesPerData: 1024 * 1024,
		SampleDecimateFactor: 1024, EntriesPerSummary: 2,
	}

	w, err := NewWriter(sig, cw)
	require.NoError(t, err)

	carriers := make([]uint64, 1024*1024)
	for i := range carriers {
		carriers[i] = 1
	}
	require.NoError(t, w.WriteRaw(0, carriers))
	require.NoError(t, w.Close())

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r, err := NewReader(sig, cr, dir)
	require.NoError(t, err)

	got, err := r.Read(64, 64)
	require.NoError(t, err)
	var word uint64
	for i, v := range got {
		word |= v << uint(i)
	}
	assert.Equal(t, uint64(0xFFFF_FFFF_FFFF_FFFF), word)
}

func TestSampleSkipProducesNaNFill(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewWriter(sig, cw)
	require.NoError(t, err)

	first := make([]float64, 1000)
	for i := range first {
		first[i] = float64(i)
	}
	require.NoError(t, w.WriteFloat64(0, first))

	second := make([]float64, 1000)
	for i := range second {
		second[i] = float64(2000 + i)
	}
	require.NoError(t, w.WriteFloat64(2000, second))
	require.NoError(t, w.Close())

	cr := chunk.NewReader(f)
	dir, _, _, err := BuildDirectory(cr, scratchStart)
	require.NoError(t, err)

	r, err := NewReader(sig, cr, dir)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, r.Length())

	vals, err := r.Read(0, 3000)
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		assert.Equal(t, first[i], datatype.ToFloat64(format.DataTypeF32, vals[i]))
	}
	for i := 1000; i < 2000; i++ {
		assert.True(t, math.IsNaN(datatype.ToFloat64(format.DataTypeF32, vals[i])))
	}
	for i := 2000; i < 3000; i++ {
		assert.Equal(t, second[i-2000], datatype.ToFloat64(format.DataTypeF32, vals[i]))
	}
}

func TestWriterRejectsBackwardSampleID(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)
	sig := fsrSignal()

	w, err := NewWriter(sig, cw)
	require.NoError(t, err)

	require.NoError(t, w.WriteFloat64(10, []float64{1, 2, 3}))
	err = w.WriteFloat64(5, []float64{1})
	require.Error(t, err)

	// track is now faulted
	err = w.WriteFloat64(20, []float64{1})
	require.Error(t, err)
}

func TestNewWriterRejectsSignalZeroAndVSR(t *testing.T) {
	f := openScratch(t)
	cw := chunk.NewWriterAt(f, scratchStart)

	_, err := NewWriter(&registry.Signal{ID: 0, SignalType: format.SignalTypeFSR}, cw)
	require.Error(t, err)

	_, err = NewWriter(&registry.Signal{ID: 1, SignalType: format.SignalTypeVSR}, cw)
	require.Error(t, err)
}
