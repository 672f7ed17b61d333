package track

import (
	"encoding/binary"
	"sort"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
)

// JLSTimeSecond is the number of JLS time ticks per second (2^30 Hz).
const JLSTimeSecond int64 = 1 << 30

// utcEntry is one (sample_id, timestamp) correlation point.
type utcEntry struct {
	sampleID  int64
	timestamp int64
}

// UTCWriter batches (sample_id, timestamp) pairs into UTC chunks of
// UTCDecimateFactor entries each, chained through PrevOffset like the
// DATA/SUMMARY tracks. The entries are raw pairs with no statistical
// reduction, and the UTC chunks form a single level: no summary cascade
// is built above them.
type UTCWriter struct {
	sig *registry.Signal
	cw  *chunk.Writer
	buf []utcEntry
}

// NewUTCWriter creates a UTCWriter for sig.
func NewUTCWriter(sig *registry.Signal, cw *chunk.Writer) *UTCWriter {
	return &UTCWriter{sig: sig, cw: cw}
}

// Add records one (sample_id, timestamp) correlation point, flushing a UTC
// chunk whenever UTCDecimateFactor points have accumulated.
func (w *UTCWriter) Add(sampleID, timestamp int64) error {
	w.buf = append(w.buf, utcEntry{sampleID: sampleID, timestamp: timestamp})
	if uint32(len(w.buf)) >= w.sig.UTCDecimateFactor { //nolint: gosec
		return w.flush()
	}

	return nil
}

func (w *UTCWriter) flush() error {
	n := len(w.buf)
	if n == 0 {
		return nil
	}

	payload := make([]byte, 4+n*16)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(n)) //nolint: gosec
	for i, e := range w.buf {
		base := 4 + i*16
		binary.LittleEndian.PutUint64(payload[base:base+8], uint64(e.sampleID))     //nolint: gosec
		binary.LittleEndian.PutUint64(payload[base+8:base+16], uint64(e.timestamp)) //nolint: gosec
	}

	if _, err := w.cw.Append(format.TagUTC, plainMeta(w.sig.ID), payload); err != nil {
		return err
	}
	w.buf = w.buf[:0]

	return nil
}

// Close flushes any buffered entries not yet written.
func (w *UTCWriter) Close() error { return w.flush() }

// UTCReader performs sample_id<->timestamp mapping for one signal's UTC
// track, built once at open time from its chunk chain.
type UTCReader struct {
	sig     *registry.Signal
	entries []utcEntry
}

// NewUTCReader builds a UTCReader for sig by walking its UTC chain
// backward via dir/cr.
func NewUTCReader(sig *registry.Signal, cr *chunk.Reader, dir *Directory) (*UTCReader, error) {
	r := &UTCReader{sig: sig}

	head, ok := dir.UTCHead(sig.ID)
	if !ok {
		return r, nil
	}

	var chunks [][]byte
	if err := cr.WalkPrev(head, func(_ int64, _ chunk.Header, payload []byte) error {
		chunks = append(chunks, payload)

		return nil
	}); err != nil {
		return nil, err
	}

	for i := len(chunks) - 1; i >= 0; i-- {
		payload := chunks[i]
		n := int(binary.LittleEndian.Uint32(payload[0:4]))
		for j := 0; j < n; j++ {
			base := 4 + j*16
			r.entries = append(r.entries, utcEntry{
				sampleID:  int64(binary.LittleEndian.Uint64(payload[base : base+8])),        //nolint: gosec
				timestamp: int64(binary.LittleEndian.Uint64(payload[base+8 : base+16])), //nolint: gosec
			})
		}
	}

	return r, nil
}

// SampleIDToTimestamp maps a sample_id to its JLS-time timestamp,
// interpolating (within the UTC entry range) or extrapolating (outside
// it) from the nearest known correlation points.
func (r *UTCReader) SampleIDToTimestamp(sid int64) (int64, error) {
	if len(r.entries) == 0 {
		return 0, errs.ErrNotFound
	}

	lo, hi := r.bracket(sid, func(e utcEntry) int64 { return e.sampleID })

	if r.sig.SignalType == format.SignalTypeFSR && r.sig.SampleRate > 0 {
		anchor := lo
		if absInt64(hi.sampleID-sid) < absInt64(lo.sampleID-sid) {
			anchor = hi
		}

		return anchor.timestamp + (sid-anchor.sampleID)*JLSTimeSecond/int64(r.sig.SampleRate), nil
	}

	if hi.sampleID == lo.sampleID {
		return lo.timestamp, nil
	}
	frac := float64(sid-lo.sampleID) / float64(hi.sampleID-lo.sampleID)

	return lo.timestamp + int64(frac*float64(hi.timestamp-lo.timestamp)), nil
}

// TimestampToSampleID maps a JLS-time timestamp to its sample_id, mirroring
// SampleIDToTimestamp.
func (r *UTCReader) TimestampToSampleID(ts int64) (int64, error) {
	if len(r.entries) == 0 {
		return 0, errs.ErrNotFound
	}

	lo, hi := r.bracket(ts, func(e utcEntry) int64 { return e.timestamp })

	if r.sig.SignalType == format.SignalTypeFSR && r.sig.SampleRate > 0 {
		anchor := lo
		if absInt64(hi.timestamp-ts) < absInt64(lo.timestamp-ts) {
			anchor = hi
		}

		return anchor.sampleID + (ts-anchor.timestamp)*int64(r.sig.SampleRate)/JLSTimeSecond, nil
	}

	if hi.timestamp == lo.timestamp {
		return lo.sampleID, nil
	}
	frac := float64(ts-lo.timestamp) / float64(hi.timestamp-lo.timestamp)

	return lo.sampleID + int64(frac*float64(hi.sampleID-lo.sampleID)), nil
}

// bracket finds the two entries surrounding key(e) == v, clamping to the
// two nearest entries when v lies outside the known range (extrapolation).
func (r *UTCReader) bracket(v int64, key func(utcEntry) int64) (lo, hi utcEntry) {
	n := len(r.entries)
	i := sort.Search(n, func(i int) bool { return key(r.entries[i]) >= v })

	switch {
	case i == 0:
		return r.entries[0], r.entries[min(1, n-1)]
	case i >= n:
		return r.entries[max(0, n-2)], r.entries[n-1]
	case key(r.entries[i]) == v:
		return r.entries[i], r.entries[i]
	default:
		return r.entries[i-1], r.entries[i]
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}

	return v
}
