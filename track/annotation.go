package track

import (
	"encoding/binary"
	"math"

	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/compress"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/registry"
)

// Annotation is one sparse, out-of-band marker attached to a signal.
type Annotation struct {
	Timestamp int64
	Y         float32
	Type      format.AnnotationType
	GroupID   uint8
	Storage   format.StorageType
	Data      []byte
}

// AnnotationWriter appends one ANNOTATION chunk per call, chained
// independently of the signal's DATA/SUMMARY track. The payload's
// reserved byte carries the compression kind applied to Data, repurposing
// a field the wire format otherwise leaves at zero — this is the one
// place compression reaches into the fixed ANNOTATION layout, so a reader
// needs nothing beyond the payload itself to decompress.
type AnnotationWriter struct {
	sig   *registry.Signal
	cw    *chunk.Writer
	codec compress.Codec
	kind  format.CompressionType
}

// NewAnnotationWriter creates an AnnotationWriter for sig, compressing each
// annotation's payload data with the given kind (format.CompressionNone
// disables compression).
func NewAnnotationWriter(sig *registry.Signal, cw *chunk.Writer, kind format.CompressionType) (*AnnotationWriter, error) {
	codec, err := compress.New(kind)
	if err != nil {
		return nil, err
	}

	return &AnnotationWriter{sig: sig, cw: cw, codec: codec, kind: kind}, nil
}

// Write appends one annotation. If Storage is STRING or JSON and Data has
// no trailing NUL, one is appended so a reader can treat the bytes as a
// C-style string directly.
func (w *AnnotationWriter) Write(a Annotation) error {
	data := a.Data
	if (a.Storage == format.StorageString || a.Storage == format.StorageJSON) &&
		(len(data) == 0 || data[len(data)-1] != 0) {
		data = append(append([]byte{}, data...), 0)
	}

	compressed, err := w.codec.Compress(data)
	if err != nil {
		return err
	}

	payload := make([]byte, annotationHeaderSize+len(compressed))
	binary.LittleEndian.PutUint64(payload[0:8], uint64(a.Timestamp)) //nolint: gosec
	binary.LittleEndian.PutUint32(payload[8:12], math.Float32bits(a.Y))
	payload[12] = byte(a.Type)
	payload[13] = a.GroupID
	payload[14] = byte(a.Storage)
	payload[15] = byte(w.kind)
	binary.LittleEndian.PutUint32(payload[16:20], uint32(len(compressed))) //nolint: gosec
	copy(payload[20:], compressed)

	_, err = w.cw.Append(format.TagAnnotation, plainMeta(w.sig.ID), payload)

	return err
}

// AnnotationReader walks a signal's ANNOTATION chain, oldest first.
type AnnotationReader struct {
	sig *registry.Signal
	cr  *chunk.Reader
	dir *Directory
}

// NewAnnotationReader creates an AnnotationReader for sig.
func NewAnnotationReader(sig *registry.Signal, cr *chunk.Reader, dir *Directory) *AnnotationReader {
	return &AnnotationReader{sig: sig, cr: cr, dir: dir}
}

// AnnotationVisit is called once per annotation in write order. Returning a
// non-nil error aborts iteration early; ReadAll/ReadFromTimestamp then
// return that error.
type AnnotationVisit func(a Annotation) error

// annotationHeaderSize is the fixed byte size of an ANNOTATION payload's
// header, before data_bytes.
const annotationHeaderSize = 20

// decodeAnnotation parses one ANNOTATION chunk payload.
func decodeAnnotation(payload []byte) (Annotation, error) {
	if len(payload) < annotationHeaderSize {
		return Annotation{}, errs.ErrIOCorrupt
	}

	kind := format.CompressionType(payload[15])
	codec, err := compress.New(kind)
	if err != nil {
		return Annotation{}, err
	}

	dataLength := binary.LittleEndian.Uint32(payload[16:20])
	if annotationHeaderSize+int(dataLength) > len(payload) { //nolint: gosec
		return Annotation{}, errs.ErrIOCorrupt
	}

	data, err := codec.Decompress(payload[annotationHeaderSize : annotationHeaderSize+int(dataLength)]) //nolint: gosec
	if err != nil {
		return Annotation{}, err
	}

	return Annotation{
		Timestamp: int64(binary.LittleEndian.Uint64(payload[0:8])), //nolint: gosec
		Y:         math.Float32frombits(binary.LittleEndian.Uint32(payload[8:12])),
		Type:      format.AnnotationType(payload[12]),
		GroupID:   payload[13],
		Storage:   format.StorageType(payload[14]),
		Data:      data,
	}, nil
}

// ReadAll walks every annotation for the signal in write order, calling fn
// for each.
func (r *AnnotationReader) ReadAll(fn AnnotationVisit) error {
	return r.ReadFromTimestamp(minInt64, fn)
}

const minInt64 = -1 << 63

// ReadFromTimestamp walks forward from the first annotation whose
// timestamp is ≥ start, calling fn for it and every later annotation in
// write order.
func (r *AnnotationReader) ReadFromTimestamp(start int64, fn AnnotationVisit) error {
	head, ok := r.dir.AnnotationHead(r.sig.ID)
	if !ok {
		return nil
	}

	var anns []Annotation
	if err := r.cr.WalkPrev(head, func(_ int64, _ chunk.Header, payload []byte) error {
		a, err := decodeAnnotation(payload)
		if err != nil {
			return err
		}
		anns = append(anns, a)

		return nil
	}); err != nil {
		return err
	}

	started := false
	for i := len(anns) - 1; i >= 0; i-- {
		if !started && anns[i].Timestamp < start {
			continue
		}
		started = true
		if err := fn(anns[i]); err != nil {
			return err
		}
	}

	return nil
}

// UserData is an opaque chunk of caller-defined bytes tagged with its own
// chunk_meta.
type UserData struct {
	Meta    uint16
	Storage format.StorageType
	Data    []byte
}

// UserDataWriter appends USER_DATA chunks, independently chained per
// signal the same way annotations are, compressing Data the same way
// AnnotationWriter does.
type UserDataWriter struct {
	sig   *registry.Signal
	cw    *chunk.Writer
	codec compress.Codec
	kind  format.CompressionType
}

// NewUserDataWriter creates a UserDataWriter for sig.
func NewUserDataWriter(sig *registry.Signal, cw *chunk.Writer, kind format.CompressionType) (*UserDataWriter, error) {
	codec, err := compress.New(kind)
	if err != nil {
		return nil, err
	}

	return &UserDataWriter{sig: sig, cw: cw, codec: codec, kind: kind}, nil
}

// Write appends one user-data chunk.
func (w *UserDataWriter) Write(u UserData) error {
	compressed, err := w.codec.Compress(u.Data)
	if err != nil {
		return err
	}

	payload := make([]byte, userDataHeaderSize+len(compressed))
	binary.LittleEndian.PutUint16(payload[0:2], u.Meta)
	payload[2] = byte(u.Storage)
	payload[3] = byte(w.kind)
	binary.LittleEndian.PutUint32(payload[4:8], uint32(len(compressed))) //nolint: gosec
	copy(payload[8:], compressed)

	_, err = w.cw.Append(format.TagUserData, plainMeta(w.sig.ID), payload)

	return err
}

// UserDataReader walks a signal's USER_DATA chain.
type UserDataReader struct {
	sig *registry.Signal
	cr  *chunk.Reader
	dir *Directory
}

// NewUserDataReader creates a UserDataReader for sig.
func NewUserDataReader(sig *registry.Signal, cr *chunk.Reader, dir *Directory) *UserDataReader {
	return &UserDataReader{sig: sig, cr: cr, dir: dir}
}

// userDataHeaderSize is the fixed byte size of a USER_DATA payload's
// header, before data_bytes.
const userDataHeaderSize = 8

// ReadAll walks every user-data chunk for the signal in write order.
func (r *UserDataReader) ReadAll(fn func(UserData) error) error {
	head, ok := r.dir.UserDataHead(r.sig.ID)
	if !ok {
		return nil
	}

	var items []UserData
	if err := r.cr.WalkPrev(head, func(_ int64, _ chunk.Header, payload []byte) error {
		if len(payload) < userDataHeaderSize {
			return errs.ErrIOCorrupt
		}
		kind := format.CompressionType(payload[3])
		codec, err := compress.New(kind)
		if err != nil {
			return err
		}
		dataLength := binary.LittleEndian.Uint32(payload[4:8])
		if userDataHeaderSize+int(dataLength) > len(payload) { //nolint: gosec
			return errs.ErrIOCorrupt
		}
		data, err := codec.Decompress(payload[userDataHeaderSize : userDataHeaderSize+int(dataLength)]) //nolint: gosec
		if err != nil {
			return err
		}
		items = append(items, UserData{
			Meta:    binary.LittleEndian.Uint16(payload[0:2]),
			Storage: format.StorageType(payload[2]),
			Data:    data,
		})

		return nil
	}); err != nil {
		return err
	}

	for i := len(items) - 1; i >= 0; i-- {
		if err := fn(items[i]); err != nil {
			return err
		}
	}

	return nil
}
