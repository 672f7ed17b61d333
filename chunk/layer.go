package chunk

import (
	"io"

	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/internal/crcutil"
	"github.com/em-foundation/jls/internal/pool"
)

// Writer appends framed chunks to a backing file, maintaining an in-memory
// "last offset per (tag, chunk_meta)" table so each new chunk's PrevOffset
// closes the doubly-linked list for its (tag, signal, level) without
// needing to re-read the file.
type Writer struct {
	w      io.WriterAt
	offset int64
	last   map[key]int64
}

// NewWriter wraps w, an empty backing store, for appending chunks starting
// at byte offset 0. Since PrevOffset 0 means "no earlier chunk", a chunk
// written at offset 0 is not reached by WalkPrev from later chunks of its
// chain; jls files keep their prologue at offset 0 and use NewWriterAt.
func NewWriter(w io.WriterAt) *Writer {
	return &Writer{w: w, last: make(map[key]int64)}
}

// NewWriterAt wraps w, resuming appends at the given start offset (used
// when continuing to write past a prologue or previously-written chunks).
func NewWriterAt(w io.WriterAt, start int64) *Writer {
	return &Writer{w: w, offset: start, last: make(map[key]int64)}
}

// Offset returns the next byte position that will be written.
func (wr *Writer) Offset() int64 { return wr.offset }

// LastOffset returns the most recent chunk offset written for (tag, meta),
// or 0 if none has been written yet.
func (wr *Writer) LastOffset(tag format.ChunkTag, meta uint16) int64 {
	return wr.last[key{tag, meta}]
}

// Append writes one framed chunk (header + payload + alignment pad) and
// returns its absolute file offset. The chunk's PrevOffset is set to the
// most recent chunk previously appended with the same (tag, meta); the
// writer's directory is updated so the next Append with that (tag, meta)
// chains correctly.
func (wr *Writer) Append(tag format.ChunkTag, meta uint16, payload []byte) (int64, error) {
	k := key{tag, meta}
	h := Header{
		PayloadLength: uint32(len(payload)), //nolint: gosec
		PayloadCRC32:  crcutil.Checksum(payload),
		PrevOffset:    wr.last[k],
		Tag:           tag,
		ChunkMeta:     meta,
	}

	offset := wr.offset
	hdr := h.Encode()

	framed := pool.Get()
	defer pool.Put(framed)

	total := HeaderSize + paddedLen(len(payload))
	framed.Grow(total)
	framed.Write(hdr[:])
	framed.Write(payload)
	for framed.Len() < total {
		framed.Write([]byte{0})
	}

	if _, err := wr.w.WriteAt(framed.Bytes(), offset); err != nil {
		return 0, err
	}

	wr.offset = offset + int64(total)
	wr.last[k] = offset

	return offset, nil
}

// Reader provides random access and traversal over an already-written
// chunk stream.
type Reader struct {
	r io.ReaderAt
}

// NewReader wraps r for chunk-level reads.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r}
}

// ReadAt reads and validates the chunk header at offset and returns its
// decoded header plus payload bytes.
func (rd *Reader) ReadAt(offset int64) (Header, []byte, error) {
	var hb [HeaderSize]byte
	if _, err := rd.r.ReadAt(hb[:], offset); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, nil, errs.ErrIOTruncated
		}

		return Header{}, nil, err
	}

	h, err := Decode(hb)
	if err != nil {
		return Header{}, nil, err
	}

	payload := make([]byte, h.PayloadLength)
	if h.PayloadLength > 0 {
		if _, err := rd.r.ReadAt(payload, offset+HeaderSize); err != nil {
			return Header{}, nil, errs.ErrIOTruncated
		}
	}

	if crcutil.Checksum(payload) != h.PayloadCRC32 {
		return Header{}, nil, errs.ErrPayloadCRCMismatch
	}

	return h, payload, nil
}

// NextOffset returns the file offset immediately following the chunk whose
// header is h, starting at offset.
func NextOffset(offset int64, h Header) int64 {
	return offset + HeaderSize + int64(paddedLen(int(h.PayloadLength)))
}

// Visit is the callback ScanForward and WalkPrev invoke per chunk.
type Visit func(offset int64, h Header, payload []byte) error

// ScanForward walks the chunk stream starting at offset in file order,
// calling fn for each well-formed chunk, until a TagEnd chunk is seen, fn
// returns an error, or the backing store is exhausted. A chunk whose
// payload CRC fails is skipped — the scan advances past it using its
// header's declared payload length so the rest of the file remains
// reachable instead of aborting the whole scan. A header that fails to
// decode (bad sentinel or header CRC) ends the scan with
// errs.ErrIOCorrupt. The number of chunks skipped this
// way is returned, along with whether a TagEnd chunk was actually
// observed — a clean EOF with no END chunk means the file was not closed
// properly and is reported as such rather than folded into skipped.
func (rd *Reader) ScanForward(offset int64, fn Visit) (skipped int, sawEnd bool, err error) {
	for {
		var hb [HeaderSize]byte
		if _, err := rd.r.ReadAt(hb[:], offset); err != nil {
			return skipped, false, nil // clean EOF: no END chunk written (truncated or still open)
		}

		h, derr := Decode(hb)
		if derr != nil {
			// Can't trust PayloadLength from a header that failed to
			// decode at all; nothing more can be recovered from here.
			return skipped, false, errs.ErrIOCorrupt
		}

		payload := make([]byte, h.PayloadLength)
		if h.PayloadLength > 0 {
			if _, err := rd.r.ReadAt(payload, offset+HeaderSize); err != nil {
				return skipped, false, nil
			}
		}

		next := NextOffset(offset, h)

		if crcutil.Checksum(payload) != h.PayloadCRC32 {
			skipped++
			offset = next

			continue
		}

		if h.Tag == format.TagEnd {
			return skipped, true, nil
		}

		if err := fn(offset, h, payload); err != nil {
			return skipped, false, err
		}

		offset = next
	}
}

// DirKey identifies a (tag, chunk_meta) chain, the same granularity the
// Writer's last-offset table and a chunk's PrevOffset chain both key on.
type DirKey struct {
	Tag  format.ChunkTag
	Meta uint16
}

// BuildDirectory forward-scans the chunk stream from offset, returning the
// last-seen file offset for every (tag, chunk_meta) chain encountered. A
// reader uses this once at open time to recover the same "last offset per
// chain" directory the Writer keeps incrementally, since jls stores no
// separate persisted directory structure. The number of corrupt chunks
// skipped during the scan and whether a TagEnd chunk was observed are also
// returned.
func (rd *Reader) BuildDirectory(offset int64) (dir map[DirKey]int64, skipped int, sawEnd bool, err error) {
	dir = make(map[DirKey]int64)
	skipped, sawEnd, err = rd.ScanForward(offset, func(off int64, h Header, _ []byte) error {
		dir[DirKey{Tag: h.Tag, Meta: h.ChunkMeta}] = off

		return nil
	})

	return dir, skipped, sawEnd, err
}

// WalkPrev follows the PrevOffset chain backward from head, calling fn for
// each chunk until offset 0 is reached. Since chunks of the same (tag,
// meta) are always appended later in the file, this visits them in
// reverse write order.
func (rd *Reader) WalkPrev(head int64, fn Visit) error {
	offset := head
	for offset != 0 {
		h, payload, err := rd.ReadAt(offset)
		if err != nil {
			return err
		}
		if err := fn(offset, h, payload); err != nil {
			return err
		}
		offset = h.PrevOffset
	}

	return nil
}
