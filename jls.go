// Package jls implements a self-indexing binary file format for long,
// densely-sampled time-series signals alongside sparse annotations and
// wall-clock correlation data.
//
// A capture is built from a small number of layered components: a chunk
// layer providing framed, CRC-protected, doubly-linked record I/O; a
// datatype codec packing samples down to their on-disk bit width; a
// statistics accumulator folding raw samples into a hierarchical pyramid
// of (mean, min, max, stddev) summaries; and a UTC track correlating
// sample_id with wall-clock time. This package wires those pieces
// together behind a Writer/Reader pair, the way a columnar metric blob
// format's top-level package wraps its blob package for the common case.
//
// # Basic usage
//
//	w, _ := jls.Create(path)
//	_ = w.DefineSource(registry.Source{ID: 3, Name: "rig-a"})
//	sig, _ := w.DefineSignal(registry.Signal{
//	    ID: 5, SourceID: 3,
//	    SignalType: format.SignalTypeFSR, DataType: format.DataTypeF32,
//	    SampleRate: 1000, SamplesPerData: 1000,
//	})
//	tw, _ := w.TrackWriter(sig.ID)
//	_ = tw.WriteFloat64(0, samples)
//	_ = w.Close()
//
//	r, _ := jls.Open(path)
//	tr, _ := r.TrackReader(5)
//	vals, _ := tr.Read(0, 1000)
package jls

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
)

// Magic is the 8-byte value every JLS file's prologue begins with.
const Magic uint64 = 0x4A4C530D_0A1A0A20

// FormatVersion is the format version this package reads and writes.
const FormatVersion uint16 = 1

// PrologueSize is the fixed on-disk size of the file prologue.
const PrologueSize = 32

// prologue is the fixed 32-byte record at the start of every file.
type prologue struct {
	magic        uint64
	version      uint16
	reserved     uint16
	sourceDefOff uint64
	lastChunkOff uint64
}

func (p prologue) encode() [PrologueSize]byte {
	var b [PrologueSize]byte
	binary.LittleEndian.PutUint64(b[0:8], p.magic)
	binary.LittleEndian.PutUint16(b[8:10], p.version)
	binary.LittleEndian.PutUint16(b[10:12], p.reserved)
	binary.LittleEndian.PutUint64(b[12:20], p.sourceDefOff)
	binary.LittleEndian.PutUint64(b[20:28], p.lastChunkOff)

	return b
}

func decodePrologue(b [PrologueSize]byte) (prologue, error) {
	p := prologue{
		magic:        binary.LittleEndian.Uint64(b[0:8]),
		version:      binary.LittleEndian.Uint16(b[8:10]),
		reserved:     binary.LittleEndian.Uint16(b[10:12]),
		sourceDefOff: binary.LittleEndian.Uint64(b[12:20]),
		lastChunkOff: binary.LittleEndian.Uint64(b[20:28]),
	}
	if p.magic != Magic {
		return prologue{}, errs.ErrBadSentinel
	}

	return p, nil
}

// putString appends a u16-length-prefixed (length including the trailing
// NUL), NUL-terminated UTF-8 string to dst.
func putString(dst []byte, s string) []byte {
	n := len(s) + 1
	header := make([]byte, 2)
	binary.LittleEndian.PutUint16(header, uint16(n)) //nolint: gosec
	dst = append(dst, header...)
	dst = append(dst, s...)
	dst = append(dst, 0)

	return dst
}

// getString reads one putString-encoded string from src at off, returning
// the decoded string and the offset just past it.
func getString(src []byte, off int) (string, int, error) {
	if off+2 > len(src) {
		return "", 0, errs.ErrIOCorrupt
	}
	n := int(binary.LittleEndian.Uint16(src[off : off+2]))
	off += 2
	if n == 0 || off+n > len(src) {
		return "", 0, errs.ErrIOCorrupt
	}
	s := src[off : off+n-1] // drop trailing NUL
	if !utf8.Valid(s) {
		return "", 0, errs.ErrIOCorrupt
	}

	return string(s), off + n, nil
}

func encodeSourceDef(s registry.Source) []byte {
	buf := make([]byte, 0, 64)
	header := make([]byte, 2)
	binary.LittleEndian.PutUint16(header, s.ID)
	buf = append(buf, header...)
	buf = putString(buf, s.Name)
	buf = putString(buf, s.Vendor)
	buf = putString(buf, s.Model)
	buf = putString(buf, s.Version)
	buf = putString(buf, s.SerialNumber)

	return buf
}

func decodeSourceDef(payload []byte) (registry.Source, error) {
	if len(payload) < 2 {
		return registry.Source{}, errs.ErrIOCorrupt
	}

	s := registry.Source{ID: binary.LittleEndian.Uint16(payload[0:2])}
	off := 2

	var err error
	if s.Name, off, err = getString(payload, off); err != nil {
		return registry.Source{}, err
	}
	if s.Vendor, off, err = getString(payload, off); err != nil {
		return registry.Source{}, err
	}
	if s.Model, off, err = getString(payload, off); err != nil {
		return registry.Source{}, err
	}
	if s.Version, off, err = getString(payload, off); err != nil {
		return registry.Source{}, err
	}
	if s.SerialNumber, _, err = getString(payload, off); err != nil {
		return registry.Source{}, err
	}

	return s, nil
}

// signalDefFixedSize is the byte size of SIGNAL_DEF's fixed numeric header,
// before the name/units length-prefixed strings.
const signalDefFixedSize = 2 + 2 + 1 + 1 + 4*7 + 8

func encodeSignalDef(s registry.Signal) []byte {
	buf := make([]byte, signalDefFixedSize, signalDefFixedSize+32)
	binary.LittleEndian.PutUint16(buf[0:2], s.ID)
	binary.LittleEndian.PutUint16(buf[2:4], s.SourceID)
	buf[4] = byte(s.SignalType)
	buf[5] = byte(s.DataType)
	binary.LittleEndian.PutUint32(buf[6:10], s.SampleRate)
	binary.LittleEndian.PutUint32(buf[10:14], s.SamplesPerData)
	binary.LittleEndian.PutUint32(buf[14:18], s.SampleDecimateFactor)
	binary.LittleEndian.PutUint32(buf[18:22], s.EntriesPerSummary)
	binary.LittleEndian.PutUint32(buf[22:26], s.SummaryDecimateFactor)
	binary.LittleEndian.PutUint32(buf[26:30], s.AnnotationDecimateFactor)
	binary.LittleEndian.PutUint32(buf[30:34], s.UTCDecimateFactor)
	binary.LittleEndian.PutUint64(buf[34:42], uint64(s.SampleIDOffset)) //nolint: gosec

	buf = putString(buf, s.Name)
	buf = putString(buf, s.Units)

	return buf
}

func decodeSignalDef(payload []byte) (registry.Signal, error) {
	if len(payload) < signalDefFixedSize {
		return registry.Signal{}, errs.ErrIOCorrupt
	}

	s := registry.Signal{
		ID:                       binary.LittleEndian.Uint16(payload[0:2]),
		SourceID:                 binary.LittleEndian.Uint16(payload[2:4]),
		SignalType:               format.SignalType(payload[4]),
		DataType:                 format.DataType(payload[5]),
		SampleRate:               binary.LittleEndian.Uint32(payload[6:10]),
		SamplesPerData:           binary.LittleEndian.Uint32(payload[10:14]),
		SampleDecimateFactor:     binary.LittleEndian.Uint32(payload[14:18]),
		EntriesPerSummary:        binary.LittleEndian.Uint32(payload[18:22]),
		SummaryDecimateFactor:    binary.LittleEndian.Uint32(payload[22:26]),
		AnnotationDecimateFactor: binary.LittleEndian.Uint32(payload[26:30]),
		UTCDecimateFactor:        binary.LittleEndian.Uint32(payload[30:34]),
		SampleIDOffset:           int64(binary.LittleEndian.Uint64(payload[34:42])), //nolint: gosec
	}

	off := signalDefFixedSize

	var err error
	if s.Name, off, err = getString(payload, off); err != nil {
		return registry.Signal{}, err
	}
	if s.Units, _, err = getString(payload, off); err != nil {
		return registry.Signal{}, err
	}

	return s, nil
}
