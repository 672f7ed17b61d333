package track

import (
	"encoding/binary"
	"math"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/stats"
)

// pendingEntry is one not-yet-flushed summary entry awaiting its level's
// next SUMMARY/INDEX chunk, carrying the accumulator that produced it (so
// merging into the next level up stays exact) and the file offset of the
// chunk it summarizes.
type pendingEntry struct {
	offset int64
	acc    stats.Accumulator
}

// summaryLevel buffers entries for one level ≥ 1 of the summary pyramid
// until entries_per_summary of them have accumulated, at which point it
// emits a SUMMARY chunk, an INDEX chunk of the same length, and folds all
// of its buffered entries into one combined entry for the level above.
type summaryLevel struct {
	level    int
	capacity uint32
	pending  []pendingEntry
}

func newSummaryLevel(level int, capacity uint32) *summaryLevel {
	return &summaryLevel{level: level, capacity: capacity}
}

func (l *summaryLevel) push(offset int64, acc stats.Accumulator) {
	l.pending = append(l.pending, pendingEntry{offset: offset, acc: acc})
}

func (l *summaryLevel) full() bool {
	return uint32(len(l.pending)) >= l.capacity //nolint: gosec
}

func (l *summaryLevel) empty() bool {
	return len(l.pending) == 0
}

// flush writes this level's buffered entries as a SUMMARY chunk plus a
// matching INDEX chunk, then returns the combined accumulator (folding
// every buffered entry together) and the SUMMARY chunk's own offset — the
// (offset, accumulator) pair the caller hands to the level above via push.
func (l *summaryLevel) flush(cw *chunk.Writer, signalID uint16) (int64, stats.Accumulator, error) {
	n := len(l.pending)
	summaryPayload := make([]byte, 4+n*32)
	binary.LittleEndian.PutUint32(summaryPayload[0:4], uint32(n)) //nolint: gosec

	indexPayload := make([]byte, 4+n*8)
	binary.LittleEndian.PutUint32(indexPayload[0:4], uint32(n)) //nolint: gosec

	var merged stats.Accumulator
	for i, e := range l.pending {
		r := e.acc.Finalize()
		base := 4 + i*32
		binary.LittleEndian.PutUint64(summaryPayload[base:base+8], math.Float64bits(r.Mean))
		binary.LittleEndian.PutUint64(summaryPayload[base+8:base+16], math.Float64bits(r.Min))
		binary.LittleEndian.PutUint64(summaryPayload[base+16:base+24], math.Float64bits(r.Max))
		binary.LittleEndian.PutUint64(summaryPayload[base+24:base+32], math.Float64bits(r.StdDev))

		binary.LittleEndian.PutUint64(indexPayload[4+i*8:4+i*8+8], uint64(e.offset)) //nolint: gosec

		acc := e.acc
		merged.Merge(&acc)
	}

	meta := chunkMeta(signalID, l.level)
	summaryOffset, err := cw.Append(format.TagSummary, meta, summaryPayload)
	if err != nil {
		return 0, stats.Accumulator{}, err
	}
	if _, err := cw.Append(format.TagIndex, meta, indexPayload); err != nil {
		return 0, stats.Accumulator{}, err
	}

	l.pending = l.pending[:0]

	return summaryOffset, merged, nil
}

// decodeSummaryEntry reads the i-th (mean, min, max, stddev) tuple out of
// a raw SUMMARY chunk payload.
func decodeSummaryEntry(payload []byte, i int) stats.Result {
	base := 4 + i*32

	return stats.Result{
		Mean:   math.Float64frombits(binary.LittleEndian.Uint64(payload[base : base+8])),
		Min:    math.Float64frombits(binary.LittleEndian.Uint64(payload[base+8 : base+16])),
		Max:    math.Float64frombits(binary.LittleEndian.Uint64(payload[base+16 : base+24])),
		StdDev: math.Float64frombits(binary.LittleEndian.Uint64(payload[base+24 : base+32])),
	}
}

// summaryEntryCount reads entry_count from a SUMMARY or INDEX payload.
func summaryEntryCount(payload []byte) int {
	return int(binary.LittleEndian.Uint32(payload[0:4]))
}

// decodeIndexEntry reads the i-th file offset out of a raw INDEX chunk
// payload.
func decodeIndexEntry(payload []byte, i int) int64 {
	return int64(binary.LittleEndian.Uint64(payload[4+i*8 : 4+i*8+8])) //nolint: gosec
}
