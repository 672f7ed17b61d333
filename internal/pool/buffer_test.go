package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsResetBuffer(t *testing.T) {
	b := Get()
	b.Write([]byte("leftover"))
	Put(b)

	b2 := Get()
	assert.Equal(t, 0, b2.Len())
	Put(b2)
}

func TestGrowPreservesContents(t *testing.T) {
	b := &Buffer{}
	b.Write([]byte("abc"))
	b.Grow(1024)
	assert.Equal(t, []byte("abc"), b.Bytes())
	assert.GreaterOrEqual(t, cap(b.B), 1024+3)
}

func TestWriteAccumulates(t *testing.T) {
	b := &Buffer{}
	b.Write([]byte("he"))
	b.Write([]byte("llo"))
	assert.Equal(t, "hello", string(b.Bytes()))
	assert.Equal(t, 5, b.Len())
}
