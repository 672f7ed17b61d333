// Package crcutil computes the CRC-32 (IEEE polynomial, not Castagnoli)
// checksums the chunk layer stores in every chunk header. No third-party
// dependency available to this module ships a CRC-32 IEEE implementation
// (xxhash and the zstd/lz4/s2 codecs carry their own checksums for
// different purposes), so this is one of the few places jls reaches into
// the standard library directly: hash/crc32's IEEE table is the bit-exact
// algorithm the format requires.
package crcutil

import "hash/crc32"

var table = crc32.MakeTable(crc32.IEEE)

// Checksum returns the IEEE CRC-32 of data.
func Checksum(data []byte) uint32 {
	return crc32.Checksum(data, table)
}
