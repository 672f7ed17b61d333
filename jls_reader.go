package jls

import (
	"os"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
	"github.com/em-foundation/jls/track"
)

// Reader provides random access to an already-written file: its source/
// signal registry, and per-signal track readers created lazily on first
// use.
type Reader struct {
	f   *os.File
	cr  *chunk.Reader
	reg *registry.Registry
	dir *track.Directory

	// Skipped counts corrupt chunks tolerated while building the directory
	// (see chunk.Reader.ScanForward); a non-zero count does not fail Open.
	Skipped int
	// Truncated is true if no END chunk was found, meaning the file was
	// not closed cleanly. The directory is rebuilt by forward scan either
	// way.
	Truncated bool

	tracks      map[uint16]*track.Reader
	utcTracks   map[uint16]*track.UTCReader
	annotations map[uint16]*track.AnnotationReader
	userData    map[uint16]*track.UserDataReader
}

// Open opens an existing file for reading, rebuilding its source/signal
// registry and per-(tag, signal, level) chunk directory by forward scan.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var hb [PrologueSize]byte
	if _, err := f.ReadAt(hb[:], 0); err != nil {
		f.Close()

		return nil, errs.ErrIOTruncated
	}
	if _, err := decodePrologue(hb); err != nil {
		f.Close()

		return nil, err
	}

	r := &Reader{
		f:           f,
		cr:          chunk.NewReader(f),
		reg:         registry.New(),
		tracks:      make(map[uint16]*track.Reader),
		utcTracks:   make(map[uint16]*track.UTCReader),
		annotations: make(map[uint16]*track.AnnotationReader),
		userData:    make(map[uint16]*track.UserDataReader),
	}

	_, sawEnd, err := r.cr.ScanForward(PrologueSize, func(_ int64, h chunk.Header, payload []byte) error {
		switch h.Tag {
		case format.TagSourceDef:
			s, err := decodeSourceDef(payload)
			if err != nil {
				return err
			}

			return r.reg.DefineSource(s)
		case format.TagSignalDef:
			s, err := decodeSignalDef(payload)
			if err != nil {
				return err
			}
			_, err = r.reg.DefineSignal(s)

			return err
		default:
			return nil
		}
	})
	if err != nil {
		f.Close()

		return nil, err
	}

	// The directory pass visits the same chunks as the registry pass above,
	// so its skip count alone is the number of corrupt chunks in the file.
	dir, skipped, dirSawEnd, err := track.BuildDirectory(r.cr, PrologueSize)
	if err != nil {
		f.Close()

		return nil, err
	}
	r.dir = dir
	r.Skipped += skipped
	// Both forward scans read the same stream and stop at the same END
	// chunk, so either one having seen it is enough.
	r.Truncated = !(sawEnd || dirSawEnd)

	return r, nil
}

// Sources returns every defined source, including the reserved source 0.
func (r *Reader) Sources() []*registry.Source { return r.reg.Sources() }

// Signals returns every defined signal, including the reserved phantom
// signal 0.
func (r *Reader) Signals() []*registry.Signal { return r.reg.Signals() }

// Signal looks up a defined signal by ID.
func (r *Reader) Signal(id uint16) (*registry.Signal, bool) { return r.reg.Signal(id) }

// TrackReader returns the FSR track reader for signalID, creating it on
// first use.
func (r *Reader) TrackReader(signalID uint16) (*track.Reader, error) {
	if tr, ok := r.tracks[signalID]; ok {
		return tr, nil
	}

	sig, ok := r.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	tr, err := track.NewReader(sig, r.cr, r.dir)
	if err != nil {
		return nil, err
	}
	r.tracks[signalID] = tr

	return tr, nil
}

// UTCReader returns the UTC track reader for signalID, creating it on first
// use.
func (r *Reader) UTCReader(signalID uint16) (*track.UTCReader, error) {
	if ur, ok := r.utcTracks[signalID]; ok {
		return ur, nil
	}

	sig, ok := r.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	ur, err := track.NewUTCReader(sig, r.cr, r.dir)
	if err != nil {
		return nil, err
	}
	r.utcTracks[signalID] = ur

	return ur, nil
}

// AnnotationReader returns the annotation reader for signalID, creating it
// on first use.
func (r *Reader) AnnotationReader(signalID uint16) (*track.AnnotationReader, error) {
	if ar, ok := r.annotations[signalID]; ok {
		return ar, nil
	}

	sig, ok := r.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	ar := track.NewAnnotationReader(sig, r.cr, r.dir)
	r.annotations[signalID] = ar

	return ar, nil
}

// UserDataReader returns the user-data reader for signalID, creating it on
// first use.
func (r *Reader) UserDataReader(signalID uint16) (*track.UserDataReader, error) {
	if ur, ok := r.userData[signalID]; ok {
		return ur, nil
	}

	sig, ok := r.reg.Signal(signalID)
	if !ok {
		return nil, errs.ErrNotFound
	}

	ur := track.NewUserDataReader(sig, r.cr, r.dir)
	r.userData[signalID] = ur

	return ur, nil
}

// Close closes the backing file. Safe to call on a Reader whose Signals()
// were never queried.
func (r *Reader) Close() error { return r.f.Close() }
