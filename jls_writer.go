package jls

import (
	"os"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
	"github.com/em-foundation/jls/track"
)

// Writer orchestrates a single capture: the shared chunk stream, the
// source/signal registry, and one track writer per signal per track kind,
// created lazily on first use.
type Writer struct {
	f    *os.File
	cw   *chunk.Writer
	reg  *registry.Registry
	kind format.CompressionType

	tracks      map[uint16]*track.Writer
	utcTracks   map[uint16]*track.UTCWriter
	annotations map[uint16]*track.AnnotationWriter
	userData    map[uint16]*track.UserDataWriter

	closed bool
}

// Create creates a new file at path and writes its prologue, ready for
// source/signal definitions. CompressionNone is used for ANNOTATION/
// USER_DATA payloads unless overridden with WithCompression.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		f:           f,
		reg:         registry.New(),
		kind:        format.CompressionNone,
		tracks:      make(map[uint16]*track.Writer),
		utcTracks:   make(map[uint16]*track.UTCWriter),
		annotations: make(map[uint16]*track.AnnotationWriter),
		userData:    make(map[uint16]*track.UserDataWriter),
	}
	for _, opt := range opts {
		opt(w)
	}

	p := prologue{magic: Magic, version: FormatVersion, sourceDefOff: PrologueSize}
	b := p.encode()
	if _, err := f.WriteAt(b[:], 0); err != nil {
		f.Close()

		return nil, err
	}

	w.cw = chunk.NewWriterAt(f, PrologueSize)

	return w, nil
}

// WriterOption configures a Writer at creation time.
type WriterOption func(*Writer)

// WithCompression sets the codec used for ANNOTATION and USER_DATA
// payloads. DATA/SUMMARY/INDEX/UTC chunks are never compressed.
func WithCompression(kind format.CompressionType) WriterOption {
	return func(w *Writer) { w.kind = kind }
}

// DefineSource registers a source, appending a SOURCE_DEF chunk.
func (w *Writer) DefineSource(s registry.Source) error {
	if err := w.reg.DefineSource(s); err != nil {
		return err
	}
	_, err := w.cw.Append(format.TagSourceDef, s.ID, encodeSourceDef(s))

	return err
}

// DefineSignal registers a signal, appending a SIGNAL_DEF chunk. Zero-valued
// cascade parameters are filled via the auto-definition defaults before the
// chunk is written, so what's on disk always reflects the resolved values.
func (w *Writer) DefineSignal(s registry.Signal) (*registry.Signal, error) {
	sig, err := w.reg.DefineSignal(s)
	if err != nil {
		return nil, err
	}
	if _, err := w.cw.Append(format.TagSignalDef, sig.ID, encodeSignalDef(*sig)); err != nil {
		return nil, err
	}

	return sig, nil
}

// TrackWriter returns the FSR track writer for signalID, creating it on
// first use.
func (w *Writer) TrackWriter(signalID uint16) (*track.Writer, error) {
	if tw, ok := w.tracks[signalID]; ok {
		return tw, nil
	}

	sig, ok := w.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	tw, err := track.NewWriter(sig, w.cw)
	if err != nil {
		return nil, err
	}
	w.tracks[signalID] = tw

	return tw, nil
}

// UTCWriter returns the UTC track writer for signalID, creating it on first
// use.
func (w *Writer) UTCWriter(signalID uint16) (*track.UTCWriter, error) {
	if uw, ok := w.utcTracks[signalID]; ok {
		return uw, nil
	}

	sig, ok := w.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	uw := track.NewUTCWriter(sig, w.cw)
	w.utcTracks[signalID] = uw

	return uw, nil
}

// AnnotationWriter returns the annotation writer for signalID, creating it
// on first use.
func (w *Writer) AnnotationWriter(signalID uint16) (*track.AnnotationWriter, error) {
	if aw, ok := w.annotations[signalID]; ok {
		return aw, nil
	}

	sig, ok := w.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	aw, err := track.NewAnnotationWriter(sig, w.cw, w.kind)
	if err != nil {
		return nil, err
	}
	w.annotations[signalID] = aw

	return aw, nil
}

// UserDataWriter returns the user-data writer for signalID, creating it on
// first use.
func (w *Writer) UserDataWriter(signalID uint16) (*track.UserDataWriter, error) {
	if uw, ok := w.userData[signalID]; ok {
		return uw, nil
	}

	sig, ok := w.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	uw, err := track.NewUserDataWriter(sig, w.cw, w.kind)
	if err != nil {
		return nil, err
	}
	w.userData[signalID] = uw

	return uw, nil
}

// Close flushes every open track (padding and cascading partial summary
// levels), appends the END chunk, patches the prologue's final-chunk-offset
// field, and closes the backing file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	for _, tw := range w.tracks {
		if err := tw.Close(); err != nil {
			return err
		}
	}
	for _, uw := range w.utcTracks {
		if err := uw.Close(); err != nil {
			return err
		}
	}

	lastOffset := w.cw.Offset()
	if _, err := w.cw.Append(format.TagEnd, 0, nil); err != nil {
		return err
	}

	p := prologue{
		magic:        Magic,
		version:      FormatVersion,
		sourceDefOff: PrologueSize,
		lastChunkOff: uint64(lastOffset), //nolint: gosec
	}
	b := p.encode()
	if _, err := w.f.WriteAt(b[:], 0); err != nil {
		return err
	}

	return w.f.Close()
}
