// Package endian provides byte order utilities for the jls binary format.
//
// Every on-disk chunk is little-endian. The chunk layer, datatype codec and
// track payloads call encoding/binary's LittleEndian directly; no package
// in this module uses Engine.
package endian

import "encoding/binary"

// Engine combines ByteOrder and AppendByteOrder from encoding/binary into a
// single interface, satisfied directly by binary.LittleEndian and
// binary.BigEndian.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// LittleEndian is the engine used by every chunk the jls format defines.
func LittleEndian() Engine { return binary.LittleEndian }

// BigEndian returns the big-endian engine; no on-disk jls chunk uses it.
func BigEndian() Engine { return binary.BigEndian }
