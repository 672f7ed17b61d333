package track

import (
	"github.com/em-foundation/jls/chunk"
	"github.com/em-foundation/jls/format"
)

// Directory is the per-(tag, signal, level) "last chunk offset" map a
// reader recovers once at file-open time by forward-scanning the whole
// chunk stream, mirroring the table a Writer keeps incrementally while
// producing the file.
type Directory struct {
	last map[chunk.DirKey]int64
}

// BuildDirectory scans the entire chunk stream reachable from cr, starting
// just past the file prologue at offset. Returns the directory, the number
// of corrupt chunks skipped along the way (non-fatal), whether a TagEnd
// chunk was observed, and an error only if the scan could not continue at
// all.
func BuildDirectory(cr *chunk.Reader, offset int64) (dir *Directory, skipped int, sawEnd bool, err error) {
	raw, skipped, sawEnd, err := cr.BuildDirectory(offset)
	if err != nil {
		return nil, skipped, sawEnd, err
	}

	return &Directory{last: raw}, skipped, sawEnd, nil
}

func (d *Directory) lookup(tag format.ChunkTag, meta uint16) (int64, bool) {
	off, ok := d.last[chunk.DirKey{Tag: tag, Meta: meta}]

	return off, ok
}

// DataHead returns the offset of the last (most recently written) DATA
// chunk for signalID, if any.
func (d *Directory) DataHead(signalID uint16) (int64, bool) {
	return d.lookup(format.TagData, chunkMeta(signalID, 0))
}

// SummaryHead returns the offset of the last SUMMARY chunk at level for
// signalID, if any.
func (d *Directory) SummaryHead(signalID uint16, level int) (int64, bool) {
	return d.lookup(format.TagSummary, chunkMeta(signalID, level))
}

// IndexHead returns the offset of the last INDEX chunk at level for
// signalID, if any.
func (d *Directory) IndexHead(signalID uint16, level int) (int64, bool) {
	return d.lookup(format.TagIndex, chunkMeta(signalID, level))
}

// UTCHead returns the offset of the last UTC chunk for signalID, if any.
func (d *Directory) UTCHead(signalID uint16) (int64, bool) {
	return d.lookup(format.TagUTC, plainMeta(signalID))
}

// AnnotationHead returns the offset of the last ANNOTATION chunk for
// signalID, if any.
func (d *Directory) AnnotationHead(signalID uint16) (int64, bool) {
	return d.lookup(format.TagAnnotation, plainMeta(signalID))
}

// UserDataHead returns the offset of the last USER_DATA chunk for
// signalID, if any.
func (d *Directory) UserDataHead(signalID uint16) (int64, bool) {
	return d.lookup(format.TagUserData, plainMeta(signalID))
}

// TopLevel returns the deepest summary level with at least one SUMMARY
// chunk for signalID, or 0 if none exists.
func (d *Directory) TopLevel(signalID uint16) int {
	top := 0
	for k := range d.last {
		if k.Tag != format.TagSummary {
			continue
		}
		if signalOf(k.Meta) != signalID {
			continue
		}
		if l := levelOf(k.Meta); l > top {
			top = l
		}
	}

	return top
}
