package crcutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumIsDeterministicAndSensitiveToMutation(t *testing.T) {
	a := []byte("jls chunk payload")
	b := append([]byte{}, a...)
	assert.Equal(t, Checksum(a), Checksum(b))

	b[0] ^= 0xFF
	assert.NotEqual(t, Checksum(a), Checksum(b))
}

func TestChecksumEmpty(t *testing.T) {
	assert.Equal(t, uint32(0), Checksum(nil))
}
