package chunk

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/em-foundation/jls/format"
)

// memStore is a minimal growable io.ReaderAt/io.WriterAt backed by a byte
// slice, enough to drive Writer/Reader without touching the filesystem.
type memStore struct {
	buf []byte
}

func (m *memStore) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(m.buf) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)

	return len(p), nil
}

func (m *memStore) ReadAt(p []byte, off int64) (int, error) {
	if int(off) >= len(m.buf) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}

	return n, nil
}

func TestAppendReadAtRoundTrip(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	off, err := w.Append(format.TagData, 7, []byte("hello, jls"))
	require.NoError(t, err)

	r := NewReader(store)
	h, payload, err := r.ReadAt(off)
	require.NoError(t, err)
	assert.Equal(t, format.TagData, h.Tag)
	assert.EqualValues(t, 7, h.ChunkMeta)
	assert.Equal(t, []byte("hello, jls"), payload)
	assert.EqualValues(t, 0, h.PrevOffset)
}

func TestAppendChainsPrevOffsetPerTagMeta(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	off1, err := w.Append(format.TagData, 1, []byte("a"))
	require.NoError(t, err)
	off2, err := w.Append(format.TagData, 1, []byte("b"))
	require.NoError(t, err)
	// a different meta starts its own chain at 0
	off3, err := w.Append(format.TagData, 2, []byte("c"))
	require.NoError(t, err)

	r := NewReader(store)
	h2, _, err := r.ReadAt(off2)
	require.NoError(t, err)
	assert.Equal(t, off1, h2.PrevOffset)

	h3, _, err := r.ReadAt(off3)
	require.NoError(t, err)
	assert.EqualValues(t, 0, h3.PrevOffset)
}

func TestWalkPrevVisitsReverseWriteOrder(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	var offsets []int64
	for i := 0; i < 5; i++ {
		off, err := w.Append(format.TagSummary, 9, []byte{byte(i)})
		require.NoError(t, err)
		offsets = append(offsets, off)
	}

	r := NewReader(store)
	var visited []int64
	require.NoError(t, r.WalkPrev(offsets[len(offsets)-1], func(off int64, _ Header, _ []byte) error {
		visited = append(visited, off)

		return nil
	}))

	for i, off := range visited {
		assert.Equal(t, offsets[len(offsets)-1-i], off)
	}
}

func TestPayloadCRCMismatchDetected(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	off, err := w.Append(format.TagUTC, 1, []byte("payload"))
	require.NoError(t, err)

	// corrupt one payload byte in place
	store.buf[off+HeaderSize] ^= 0xFF

	r := NewReader(store)
	_, _, err = r.ReadAt(off)
	require.Error(t, err)
}

func TestBuildDirectoryTracksLastOffsetPerChain(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	_, err := w.Append(format.TagData, 1, []byte("a"))
	require.NoError(t, err)
	off2, err := w.Append(format.TagData, 1, []byte("b"))
	require.NoError(t, err)
	offEnd, err := w.Append(format.TagEnd, 0, nil)
	require.NoError(t, err)
	assert.Positive(t, offEnd)

	r := NewReader(store)
	dir, skipped, sawEnd, err := r.BuildDirectory(0)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	assert.True(t, sawEnd)
	assert.Equal(t, off2, dir[DirKey{Tag: format.TagData, Meta: 1}])
}

func TestScanForwardSkipsCorruptChunk(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store)

	_, err := w.Append(format.TagData, 1, []byte("good-1"))
	require.NoError(t, err)
	badOff, err := w.Append(format.TagData, 1, []byte("bad"))
	require.NoError(t, err)
	_, err = w.Append(format.TagData, 1, []byte("good-2"))
	require.NoError(t, err)

	store.buf[badOff+HeaderSize] ^= 0xFF

	r := NewReader(store)
	var seen int
	skipped, sawEnd, err := r.ScanForward(0, func(_ int64, _ Header, _ []byte) error {
		seen++

		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.False(t, sawEnd)
	assert.Equal(t, 2, seen)
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{PayloadLength: 42, PayloadCRC32: 0xDEADBEEF, PrevOffset: 128, Tag: format.TagSummary, ChunkMeta: 0x1234}
	b := h.Encode()

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, h.PayloadLength, got.PayloadLength)
	assert.Equal(t, h.PayloadCRC32, got.PayloadCRC32)
	assert.Equal(t, h.PrevOffset, got.PrevOffset)
	assert.Equal(t, h.Tag, got.Tag)
	assert.Equal(t, h.ChunkMeta, got.ChunkMeta)
}

func TestDecodeRejectsBadSentinel(t *testing.T) {
	var b [HeaderSize]byte
	copy(b[:], bytes.Repeat([]byte{0xAA}, HeaderSize))
	_, err := Decode(b)
	require.Error(t, err)
}
