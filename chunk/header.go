// Package chunk implements framed record I/O with a fixed 32-byte header,
// CRC-32 integrity, and a doubly-linked list per (tag, signal, level). It
// is the lowest layer of jls, the equivalent of a columnar blob format's
// section package — but where that format's section headers describe one
// blob, a chunk header here describes one frame in a much longer
// append-only stream.
package chunk

import (
	"encoding/binary"

	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/internal/crcutil"
)

// Sentinel is the magic value every chunk header begins with.
const Sentinel uint64 = 0x9068_934A_0000_9A8B

// HeaderSize is the fixed on-disk size of a chunk header in bytes.
const HeaderSize = 32

// Header is the fixed-size framing record in front of every chunk's
// payload, laid out bit-exact and little-endian.
type Header struct {
	PayloadLength uint32
	PayloadCRC32  uint32
	PrevOffset    int64 // 0 = no earlier chunk of this (tag, meta)
	Tag           format.ChunkTag
	ChunkMeta     uint16
	HeaderCRC32   uint32
}

// headerCRC computes the CRC-32 over header bytes [0:28) — everything
// before the HeaderCRC32 field itself.
func headerCRC(b [HeaderSize]byte) uint32 {
	return crcutil.Checksum(b[:28])
}

// Encode serializes h into a 32-byte array, little-endian, computing and
// filling in HeaderCRC32.
func (h *Header) Encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.LittleEndian.PutUint64(b[0:8], Sentinel)
	binary.LittleEndian.PutUint32(b[8:12], h.PayloadLength)
	binary.LittleEndian.PutUint32(b[12:16], h.PayloadCRC32)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PrevOffset))
	b[24] = byte(h.Tag)
	b[25] = 0 // reserved
	binary.LittleEndian.PutUint16(b[26:28], h.ChunkMeta)

	h.HeaderCRC32 = headerCRC(b)
	binary.LittleEndian.PutUint32(b[28:32], h.HeaderCRC32)

	return b
}

// Decode parses a 32-byte header, validating the sentinel and header CRC.
func Decode(b [HeaderSize]byte) (Header, error) {
	sentinel := binary.LittleEndian.Uint64(b[0:8])
	if sentinel != Sentinel {
		return Header{}, errs.ErrBadSentinel
	}

	storedCRC := binary.LittleEndian.Uint32(b[28:32])
	if headerCRC(b) != storedCRC {
		return Header{}, errs.ErrHeaderCRCMismatch
	}

	h := Header{
		PayloadLength: binary.LittleEndian.Uint32(b[8:12]),
		PayloadCRC32:  binary.LittleEndian.Uint32(b[12:16]),
		PrevOffset:    int64(binary.LittleEndian.Uint64(b[16:24])),
		Tag:           format.ChunkTag(b[24]),
		ChunkMeta:     binary.LittleEndian.Uint16(b[26:28]),
		HeaderCRC32:   storedCRC,
	}

	return h, nil
}

// paddedLen rounds n up to the next multiple of 8, matching the chunk
// layer's 8-byte alignment pad after each payload.
func paddedLen(n int) int {
	return (n + 7) &^ 7
}

// key identifies a (tag, chunk_meta) directory entry for the in-memory
// last-offset table the writer keeps to fill in PrevOffset on append.
type key struct {
	tag  format.ChunkTag
	meta uint16
}
