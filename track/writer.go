package track

import (
	"encoding/binary"
	"math"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/datatype"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
	"github.com/em-foundation/jls/stats"
)

// Writer admits samples for one FSR signal: it stages raw samples into
// level-0 DATA chunks, folds sample_decimate_factor-sized sub-blocks into
// level-1 summary entries, and cascades completed SUMMARY chunks up
// through the pyramid exactly as described for the fixed sample rate
// track writer. One Writer is created per signal by the top-level jls
// Writer.
type Writer struct {
	sig *registry.Signal
	cw  *chunk.Writer

	writeSampleID int64 // next expected sample_id
	faulted       bool

	dataBuf     []uint64 // staged raw carrier samples, len < SamplesPerData
	dataReal    []float64
	dataStartID int64

	subAcc   stats.Accumulator
	subCount uint32

	pendingL1 []pendingEntry // sub-block entries awaiting this DATA chunk's offset

	levels []*summaryLevel // levels[0] is level 1, levels[1] level 2, ...
}

// NewWriter creates a Writer for sig, writing chunks through cw.
func NewWriter(sig *registry.Signal, cw *chunk.Writer) (*Writer, error) {
	if sig.ID == 0 {
		return nil, errs.ErrSignalNotWritable
	}
	if sig.SignalType != format.SignalTypeFSR {
		return nil, errs.ErrSignalNotFSR
	}

	return &Writer{
		sig:           sig,
		cw:            cw,
		writeSampleID: sig.SampleIDOffset,
		dataStartID:   sig.SampleIDOffset,
	}, nil
}

// WriteFloat64 admits count samples starting at sampleID, given as real
// values; each is packed into the signal's data type via
// datatype.FromFloat64 before staging.
func (w *Writer) WriteFloat64(sampleID int64, values []float64) error {
	carriers := make([]uint64, len(values))
	for i, v := range values {
		carriers[i] = datatype.FromFloat64(w.sig.DataType, v)
	}

	return w.WriteRaw(sampleID, carriers)
}

// WriteRaw admits samples already in their uint64 carrier form (see
// package datatype), starting at sampleID.
func (w *Writer) WriteRaw(sampleID int64, carriers []uint64) error {
	if w.faulted {
		return errs.ErrTrackFaulted
	}
	if sampleID < w.writeSampleID {
		w.faulted = true

		return errs.ErrBackwardSampleID
	}

	if sampleID > w.writeSampleID {
		gap := sampleID - w.writeSampleID
		if err := w.admitFill(gap); err != nil {
			w.faulted = true

			return err
		}
	}

	for _, c := range carriers {
		if err := w.admitOne(c, datatype.ToFloat64(w.sig.DataType, c)); err != nil {
			w.faulted = true

			return err
		}
	}

	return nil
}

// admitFill pushes n gap-filled samples (NaN in the statistics pipeline,
// FillValue(dt) on disk) to restore alignment after a forward sample_id
// skip.
func (w *Writer) admitFill(n int64) error {
	fill := datatype.FillValue(w.sig.DataType)
	for i := int64(0); i < n; i++ {
		if err := w.admitOne(fill, math.NaN()); err != nil {
			return err
		}
	}

	return nil
}

// admitOne stages a single sample (its on-disk carrier plus its
// real-domain value for the statistics pipeline), flushing level 0 and
// cascading summary levels whenever a boundary is crossed.
func (w *Writer) admitOne(carrier uint64, real float64) error {
	w.dataBuf = append(w.dataBuf, carrier)
	w.dataReal = append(w.dataReal, real)
	w.writeSampleID++

	w.subAcc.Add(real)
	w.subCount++

	if w.subCount == w.sig.SampleDecimateFactor {
		w.pendingL1 = append(w.pendingL1, pendingEntry{acc: w.subAcc})
		w.subAcc = stats.Accumulator{}
		w.subCount = 0
	}

	if uint32(len(w.dataBuf)) == w.sig.SamplesPerData { //nolint: gosec
		return w.flushData()
	}

	return nil
}

// flushData writes the staged level-0 buffer as one DATA chunk, then
// assigns that chunk's offset to every level-1 entry produced while it was
// being filled and pushes them into the cascade.
func (w *Writer) flushData() error {
	if len(w.dataBuf) == 0 {
		return nil
	}

	payload := make([]byte, 8+datatype.ByteLen(w.sig.DataType, len(w.dataBuf)))
	binary.LittleEndian.PutUint64(payload[0:8], uint64(w.dataStartID)) //nolint: gosec
	datatype.Pack(w.sig.DataType, w.dataBuf, payload[8:], 0)

	offset, err := w.cw.Append(format.TagData, chunkMeta(w.sig.ID, 0), payload)
	if err != nil {
		return err
	}

	for _, e := range w.pendingL1 {
		if err := w.pushLevel(1, offset, e.acc); err != nil {
			return err
		}
	}
	w.pendingL1 = w.pendingL1[:0]

	w.dataStartID += int64(len(w.dataBuf))
	w.dataBuf = w.dataBuf[:0]
	w.dataReal = w.dataReal[:0]

	return nil
}

// pushLevel hands one completed entry to level l's buffer, flushing and
// cascading further up whenever that buffer fills.
func (w *Writer) pushLevel(l int, offset int64, acc stats.Accumulator) error {
	for len(w.levels) < l {
		w.levels = append(w.levels, newSummaryLevel(len(w.levels)+1, w.sig.EntriesPerSummary))
	}
	lvl := w.levels[l-1]
	lvl.push(offset, acc)

	if !lvl.full() {
		return nil
	}

	nextOffset, merged, err := lvl.flush(w.cw, w.sig.ID)
	if err != nil {
		return err
	}

	return w.pushLevel(l+1, nextOffset, merged)
}

// Close flushes every partial buffer regardless of fullness: level 0 is
// padded to SamplesPerData with fill samples, its trailing partial
// sub-block (if any) is folded in as-is, and every summary level above
// emits whatever it currently holds, cascading to the top.
func (w *Writer) Close() error {
	if w.faulted {
		return errs.ErrTrackFaulted
	}

	if len(w.dataBuf) > 0 {
		pad := int64(w.sig.SamplesPerData) - int64(len(w.dataBuf))
		if pad > 0 {
			if err := w.admitFill(pad); err != nil {
				return err
			}
		}
	}

	if w.subCount > 0 {
		w.pendingL1 = append(w.pendingL1, pendingEntry{acc: w.subAcc})
		w.subAcc = stats.Accumulator{}
		w.subCount = 0
	}

	if len(w.dataBuf) > 0 {
		if err := w.flushData(); err != nil {
			return err
		}
	}

	for l := 1; l <= len(w.levels); l++ {
		lvl := w.levels[l-1]
		if lvl.empty() {
			continue
		}
		offset, merged, err := lvl.flush(w.cw, w.sig.ID)
		if err != nil {
			return err
		}
		if l == len(w.levels) {
			break // the top level's flush ends the cascade
		}
		if err := w.pushLevel(l+1, offset, merged); err != nil {
			return err
		}
	}

	return nil
}

// Length returns the total number of logical samples admitted so far
// (including sample_id_offset).
func (w *Writer) Length() int64 {
	return w.writeSampleID - w.sig.SampleIDOffset
}
