// Package pool provides a pooled growable byte buffer used when assembling
// chunk payloads, adapted from a columnar time-series format's
// internal/pool/byte_buffer_pool.go. Reusing buffers matters here because a
// Track Writer emits one payload per DATA/SUMMARY/INDEX/UTC chunk, and those
// chunks are produced continuously while a long capture is streaming in.
package pool

import "sync"

// DefaultSize is the initial capacity handed out by Get.
const DefaultSize = 1024 * 16 // 16KiB, a few DATA chunks' worth at 1kHz F32

// Buffer is a growable byte slice wrapper, reset between uses instead of
// reallocated.
type Buffer struct {
	B []byte
}

// Reset truncates the buffer to zero length while keeping its capacity.
func (b *Buffer) Reset() { b.B = b.B[:0] }

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte { return b.B }

// Len returns the buffer's current length.
func (b *Buffer) Len() int { return len(b.B) }

// Write appends data to the buffer, growing it if needed.
func (b *Buffer) Write(data []byte) {
	b.B = append(b.B, data...)
}

// Grow ensures at least n more bytes of capacity are available.
func (b *Buffer) Grow(n int) {
	if cap(b.B)-len(b.B) >= n {
		return
	}
	grown := make([]byte, len(b.B), len(b.B)+n)
	copy(grown, b.B)
	b.B = grown
}

var bufferPool = sync.Pool{
	New: func() any {
		return &Buffer{B: make([]byte, 0, DefaultSize)}
	},
}

// Get returns a reset Buffer from the pool.
func Get() *Buffer {
	buf, _ := bufferPool.Get().(*Buffer)
	buf.Reset()
	return buf
}

// Put returns a Buffer to the pool. Callers must not use buf afterward.
func Put(buf *Buffer) {
	bufferPool.Put(buf)
}
