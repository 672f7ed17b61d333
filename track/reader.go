package track

import (
	"encoding/binary"
	"sort"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/datatype"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/registry"
	"github.com/em-foundation/jls/stats"
)

// dataChunkRef describes one level-0 DATA chunk's place in a signal's
// sample space.
type dataChunkRef struct {
	offset        int64
	startSampleID int64
	count         int
}

// Reader provides random-access sample fetch and range statistics for one
// FSR signal, built once at file-open time from the chunk directory.
type Reader struct {
	sig *registry.Signal
	cr  *chunk.Reader
	dir *Directory

	dataChunks []dataChunkRef
	length     int64
	topLevel   int

	levelEntries map[int][]stats.Result // lazily built per level
}

// NewReader builds a Reader for sig by walking its DATA chunk chain
// backward from dir's directory.
func NewReader(sig *registry.Signal, cr *chunk.Reader, dir *Directory) (*Reader, error) {
	r := &Reader{
		sig:          sig,
		cr:           cr,
		dir:          dir,
		levelEntries: make(map[int][]stats.Result),
		topLevel:     dir.TopLevel(sig.ID),
	}

	head, ok := dir.DataHead(sig.ID)
	if !ok {
		return r, nil
	}

	var refs []dataChunkRef
	if err := cr.WalkPrev(head, func(offset int64, h chunk.Header, payload []byte) error {
		startID := int64(binary.LittleEndian.Uint64(payload[0:8])) //nolint: gosec
		count := datatype.SampleCount(sig.DataType, len(payload)-8)
		refs = append(refs, dataChunkRef{offset: offset, startSampleID: startID, count: count})

		return nil
	}); err != nil {
		return nil, err
	}

	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
	r.dataChunks = refs

	if n := len(refs); n > 0 {
		last := refs[n-1]
		r.length = last.startSampleID - sig.SampleIDOffset + int64(last.count)
	}

	return r, nil
}

// Length returns the total number of samples written for this signal.
func (r *Reader) Length() int64 { return r.length }

// Read fetches count samples starting at sample_id start, returning each
// as its uint64 carrier form (see package datatype). Gap-filled samples
// decode to datatype.FillValue(dt).
func (r *Reader) Read(start int64, count int) ([]uint64, error) {
	if count < 0 {
		return nil, errs.ErrNegativeLength
	}
	if start < r.sig.SampleIDOffset || start+int64(count) > r.sig.SampleIDOffset+r.length {
		return nil, errs.ErrOutOfRange
	}

	out := make([]uint64, 0, count)
	remaining := int64(count)
	cursor := start

	idx := sort.Search(len(r.dataChunks), func(i int) bool {
		ref := r.dataChunks[i]

		return ref.startSampleID+int64(ref.count) > cursor
	})

	for remaining > 0 && idx < len(r.dataChunks) {
		ref := r.dataChunks[idx]
		localStart := cursor - ref.startSampleID
		localCount := int64(ref.count) - localStart
		if localCount > remaining {
			localCount = remaining
		}

		_, payload, err := r.cr.ReadAt(ref.offset)
		if err != nil {
			return nil, err
		}

		width := datatype.BitWidth(r.sig.DataType)
		vals := datatype.Unpack(r.sig.DataType, payload[8:], int(localStart)*width, int(localCount))
		out = append(out, vals...)

		cursor += localCount
		remaining -= localCount
		idx++
	}

	return out, nil
}

// entrySpan returns the number of raw samples a single summary entry at
// level covers: level 0 is one raw sample; level l≥1 covers
// SampleDecimateFactor * EntriesPerSummary^(l-1) samples, since each level
// l entry is produced by merging one full SUMMARY chunk's worth of level
// l-1 entries (see track.Writer.pushLevel).
func (r *Reader) entrySpan(level int) int64 {
	if level <= 0 {
		return 1
	}
	span := int64(r.sig.SampleDecimateFactor)
	for i := 1; i < level; i++ {
		span *= int64(r.sig.EntriesPerSummary)
	}

	return span
}

// chooseLevel picks the deepest summary level whose entry span is ≤ L, or
// 0 (raw samples) if even level 1 is too coarse.
func (r *Reader) chooseLevel(length int64) int {
	chosen := 0
	for l := 1; l <= r.topLevel; l++ {
		if r.entrySpan(l) <= length {
			chosen = l
		} else {
			break
		}
	}

	return chosen
}

// levelEntriesCached returns every summary entry at level, in ascending
// sample order, building and caching the list on first access by walking
// the level's SUMMARY chain backward.
func (r *Reader) levelEntriesCached(level int) ([]stats.Result, error) {
	if cached, ok := r.levelEntries[level]; ok {
		return cached, nil
	}

	head, ok := r.dir.SummaryHead(r.sig.ID, level)
	if !ok {
		r.levelEntries[level] = nil

		return nil, nil
	}

	var chunks [][]byte
	if err := r.cr.WalkPrev(head, func(_ int64, _ chunk.Header, payload []byte) error {
		chunks = append(chunks, payload)

		return nil
	}); err != nil {
		return nil, err
	}

	var entries []stats.Result
	for i := len(chunks) - 1; i >= 0; i-- {
		n := summaryEntryCount(chunks[i])
		for j := 0; j < n; j++ {
			entries = append(entries, decodeSummaryEntry(chunks[i], j))
		}
	}

	r.levelEntries[level] = entries

	return entries, nil
}

// rawAccumulator builds an exact accumulator over [a, a+length) by reading
// and converting raw samples.
func (r *Reader) rawAccumulator(a, length int64) (stats.Accumulator, error) {
	var acc stats.Accumulator
	if length <= 0 {
		return acc, nil
	}

	vals, err := r.Read(a, int(length))
	if err != nil {
		return acc, err
	}

	for _, v := range vals {
		acc.Add(datatype.ToFloat64(r.sig.DataType, v))
	}

	return acc, nil
}

// levelBodyAccumulator merges the whole level-`level` entries covering
// [aAligned, bAligned).
func (r *Reader) levelBodyAccumulator(level int, aAligned, bAligned int64) (stats.Accumulator, error) {
	var acc stats.Accumulator
	if bAligned <= aAligned {
		return acc, nil
	}

	entries, err := r.levelEntriesCached(level)
	if err != nil {
		return acc, err
	}

	span := r.entrySpan(level)
	base := r.sig.SampleIDOffset
	first := int((aAligned - base) / span)
	last := int((bAligned - base) / span)

	for i := first; i < last && i < len(entries); i++ {
		sub := stats.FromResult(entries[i], uint64(span)) //nolint: gosec
		acc.Merge(&sub)
	}

	return acc, nil
}

// rangeAccumulator computes the exact/approximate accumulator for
// [a, a+length), decomposing it into a raw head, a whole-entry body read
// from the deepest summary level that fits, and a raw tail — recursing
// into the head/tail whenever they are themselves large.
func (r *Reader) rangeAccumulator(a, length int64) (stats.Accumulator, error) {
	var acc stats.Accumulator
	if length <= 0 {
		return acc, nil
	}

	level := r.chooseLevel(length)
	if level == 0 {
		return r.rawAccumulator(a, length)
	}

	span := r.entrySpan(level)
	base := r.sig.SampleIDOffset
	end := a + length

	aAligned := base + ceilDiv(a-base, span)*span
	if aAligned > end {
		aAligned = end
	}
	bAligned := base + ((end-base)/span)*span
	if bAligned < aAligned {
		bAligned = aAligned
	}

	if aAligned > a {
		head, err := r.rangeAccumulator(a, aAligned-a)
		if err != nil {
			return acc, err
		}
		acc.Merge(&head)
	}

	if bAligned > aAligned {
		body, err := r.levelBodyAccumulator(level, aAligned, bAligned)
		if err != nil {
			return acc, err
		}
		acc.Merge(&body)
	}

	if end > bAligned {
		tail, err := r.rangeAccumulator(bAligned, end-bAligned)
		if err != nil {
			return acc, err
		}
		acc.Merge(&tail)
	}

	return acc, nil
}

func ceilDiv(a, b int64) int64 {
	if a <= 0 {
		return 0
	}

	return (a + b - 1) / b
}

// Statistics returns outputCount statistics entries, each covering
// length/outputCount consecutive samples starting at start (integer
// division; any remainder is absorbed into the last entry).
func (r *Reader) Statistics(start, length int64, outputCount int) ([]stats.Result, error) {
	if length < 0 || outputCount <= 0 {
		return nil, errs.ErrNegativeLength
	}
	if start < r.sig.SampleIDOffset || start+length > r.sig.SampleIDOffset+r.length {
		return nil, errs.ErrOutOfRange
	}

	per := length / int64(outputCount)
	out := make([]stats.Result, outputCount)
	cursor := start

	for i := 0; i < outputCount; i++ {
		span := per
		if i == outputCount-1 {
			span = length - per*int64(outputCount-1)
		}

		acc, err := r.rangeAccumulator(cursor, span)
		if err != nil {
			return nil, err
		}
		out[i] = acc.Finalize()
		cursor += span
	}

	return out, nil
}
