// Package format defines the small value types shared across the jls file
// format: chunk tags, sample data types, signal kinds, and annotation/
// storage kinds. It mirrors the layering of a columnar blob format's
// "format" package: pure enums and their Stringers, no I/O.
package format

type (
	// ChunkTag identifies the kind of record a Chunk carries.
	ChunkTag uint8
	// DataType identifies a signal's sample representation.
	DataType uint8
	// SignalType distinguishes fixed vs variable sample rate signals.
	SignalType uint8
	// AnnotationType classifies an annotation entry.
	AnnotationType uint8
	// StorageType classifies how an annotation's or user-data chunk's
	// payload bytes should be interpreted.
	StorageType uint8
	// CompressionType selects the payload codec for ANNOTATION/USER_DATA
	// chunks (DATA/SUMMARY/INDEX/UTC chunks are always uncompressed).
	CompressionType uint8
)

const (
	TagSourceDef  ChunkTag = 0x80
	TagSignalDef  ChunkTag = 0x81
	TagTrackDef   ChunkTag = 0x82
	TagTrackHead  ChunkTag = 0x83
	TagData       ChunkTag = 0x20
	TagIndex      ChunkTag = 0x21
	TagSummary    ChunkTag = 0x22
	TagUTC        ChunkTag = 0x23
	TagAnnotation ChunkTag = 0x24
	TagUserData   ChunkTag = 0x25
	TagEnd        ChunkTag = 0xFF
)

func (t ChunkTag) String() string {
	switch t {
	case TagSourceDef:
		return "SOURCE_DEF"
	case TagSignalDef:
		return "SIGNAL_DEF"
	case TagTrackDef:
		return "TRACK_DEF"
	case TagTrackHead:
		return "TRACK_HEAD"
	case TagData:
		return "DATA"
	case TagIndex:
		return "INDEX"
	case TagSummary:
		return "SUMMARY"
	case TagUTC:
		return "UTC"
	case TagAnnotation:
		return "ANNOTATION"
	case TagUserData:
		return "USER_DATA"
	case TagEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

const (
	DataTypeU1  DataType = iota + 1 // 1-bit unsigned
	DataTypeU4                      // 4-bit unsigned
	DataTypeU8                      // 8-bit unsigned
	DataTypeU16                     // 16-bit unsigned
	DataTypeU24                     // 24-bit unsigned
	DataTypeU32                     // 32-bit unsigned
	DataTypeU64                     // 64-bit unsigned
	DataTypeI4                      // 4-bit signed
	DataTypeI8                      // 8-bit signed
	DataTypeI16                     // 16-bit signed
	DataTypeI24                     // 24-bit signed
	DataTypeI32                     // 32-bit signed
	DataTypeI64                     // 64-bit signed
	DataTypeF32                     // 32-bit IEEE float
	DataTypeF64                     // 64-bit IEEE float
)

func (d DataType) String() string {
	switch d {
	case DataTypeU1:
		return "U1"
	case DataTypeU4:
		return "U4"
	case DataTypeU8:
		return "U8"
	case DataTypeU16:
		return "U16"
	case DataTypeU24:
		return "U24"
	case DataTypeU32:
		return "U32"
	case DataTypeU64:
		return "U64"
	case DataTypeI4:
		return "I4"
	case DataTypeI8:
		return "I8"
	case DataTypeI16:
		return "I16"
	case DataTypeI24:
		return "I24"
	case DataTypeI32:
		return "I32"
	case DataTypeI64:
		return "I64"
	case DataTypeF32:
		return "F32"
	case DataTypeF64:
		return "F64"
	default:
		return "UNKNOWN"
	}
}

// IsFloat reports whether the data type is F32 or F64.
func (d DataType) IsFloat() bool {
	return d == DataTypeF32 || d == DataTypeF64
}

// IsSigned reports whether the data type is a signed integer type.
func (d DataType) IsSigned() bool {
	switch d {
	case DataTypeI4, DataTypeI8, DataTypeI16, DataTypeI24, DataTypeI32, DataTypeI64:
		return true
	default:
		return false
	}
}

const (
	SignalTypeFSR SignalType = iota + 1 // fixed sample rate
	SignalTypeVSR                       // variable sample rate
)

func (s SignalType) String() string {
	switch s {
	case SignalTypeFSR:
		return "FSR"
	case SignalTypeVSR:
		return "VSR"
	default:
		return "UNKNOWN"
	}
}

const (
	AnnotationUser            AnnotationType = iota + 1
	AnnotationText
	AnnotationVerticalMarker
	AnnotationHorizontalMarker
)

const (
	StorageBinary StorageType = iota + 1
	StorageString
	StorageJSON
)

const (
	CompressionNone CompressionType = iota + 1
	CompressionZstd
	CompressionS2
	CompressionLZ4
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
