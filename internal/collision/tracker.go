// Package collision tracks human-readable source/signal names by their
// xxHash64 fingerprint so the registry can flag accidental name reuse
// quickly, without a linear scan over every defined name. The hash is an
// ancillary lookup aid, not the identifier itself — source_id/signal_id
// remain the sole identity and are validated independently by the
// registry.
package collision

import (
	"github.com/cespare/xxhash/v2"

	"github.com/em-foundation/jls/errs"
)

// Tracker records name -> hash mappings and reports when the same name is
// registered twice.
type Tracker struct {
	byHash map[uint64]string
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{byHash: make(map[uint64]string)}
}

// Track registers name, returning errs.ErrAlreadyExists if an identical name
// was already tracked. A hash collision between two distinct names is not
// an error here — the registry still rejects duplicate IDs independently,
// so colliding names simply both remain addressable by their own
// source_id/signal_id.
func (t *Tracker) Track(name string) error {
	if name == "" {
		return nil
	}
	h := xxhash.Sum64String(name)
	if existing, ok := t.byHash[h]; ok && existing == name {
		return errs.ErrAlreadyExists
	}
	t.byHash[h] = name

	return nil
}

// Has reports whether name has been tracked before.
func (t *Tracker) Has(name string) bool {
	if name == "" {
		return false
	}
	h := xxhash.Sum64String(name)
	existing, ok := t.byHash[h]

	return ok && existing == name
}
