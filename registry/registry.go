// Package registry holds the Source and Signal definition tables: the
// append-only catalog every track is defined against before it can accept
// samples. It validates uniqueness of source_id/signal_id, that a signal's
// source_id references an already-defined source, and fills in the
// auto-definition defaults for cascade parameters left at zero.
package registry

import (
	"github.com/em-foundation/jls/datatype"
	"github.com/em-foundation/jls/errs"
	"github.com/em-foundation/jls/format"
	"github.com/em-foundation/jls/internal/collision"
)

// Source is a logical data producer.
type Source struct {
	ID           uint16
	Name         string
	Vendor       string
	Model        string
	Version      string
	SerialNumber string
}

// Signal is a named time-series defined against a Source.
type Signal struct {
	ID                       uint16
	SourceID                 uint16
	SignalType               format.SignalType
	DataType                 format.DataType
	SampleRate               uint32 // Hz; 0 iff VSR
	SamplesPerData           uint32
	SampleDecimateFactor     uint32
	EntriesPerSummary        uint32
	SummaryDecimateFactor    uint32
	AnnotationDecimateFactor uint32
	UTCDecimateFactor        uint32
	Name                     string
	Units                    string
	SampleIDOffset           int64
}

// Auto-definition defaults applied when the corresponding Signal field is
// left at zero.
const (
	DefaultSamplesPerData           = 100000
	DefaultSampleDecimateFactor     = 100
	DefaultEntriesPerSummary        = 200
	DefaultSummaryDecimateFactor    = 100
	DefaultAnnotationDecimateFactor = 100
	DefaultUTCDecimateFactor        = 100
)

// Registry is the mutable catalog of sources and signals for one file.
// Source 0 and Signal 0 are reserved, implicitly present, and never
// writable.
type Registry struct {
	sources     map[uint16]*Source
	signals     map[uint16]*Signal
	sourceNames *collision.Tracker
	signalNames *collision.Tracker
}

// New creates a Registry with the implicit reserved source 0 and signal 0
// already present.
func New() *Registry {
	r := &Registry{
		sources:     make(map[uint16]*Source),
		signals:     make(map[uint16]*Signal),
		sourceNames: collision.NewTracker(),
		signalNames: collision.NewTracker(),
	}
	r.sources[0] = &Source{ID: 0, Name: "global"}
	r.signals[0] = &Signal{ID: 0, Name: "global"}

	return r
}

// DefineSource adds a new source. Returns errs.ErrAlreadyExists if id is
// already defined, errs.ErrReservedID if id is 0.
func (r *Registry) DefineSource(s Source) error {
	if s.ID == 0 {
		return errs.ErrReservedID
	}
	if _, ok := r.sources[s.ID]; ok {
		return errs.ErrAlreadyExists
	}

	src := s
	r.sources[s.ID] = &src
	_ = r.sourceNames.Track(s.Name)

	return nil
}

// Source looks up a defined source by ID.
func (r *Registry) Source(id uint16) (*Source, bool) {
	s, ok := r.sources[id]

	return s, ok
}

// Sources returns every defined source, including the reserved source 0,
// ordered by source_id.
func (r *Registry) Sources() []*Source {
	return sortedValues(r.sources)
}

// DefineSignal adds a new signal, applying the auto-definition defaults to
// any zero-valued cascade parameter and validating the
// samples_per_data/bit_width alignment constraint for sub-byte types.
// Returns errs.ErrReservedID for signal 0, errs.ErrAlreadyExists for a
// duplicate signal_id, errs.ErrSourceNotDefined if source_id has not been
// defined yet.
func (r *Registry) DefineSignal(s Signal) (*Signal, error) {
	if s.ID == 0 {
		return nil, errs.ErrReservedID
	}
	if _, ok := r.signals[s.ID]; ok {
		return nil, errs.ErrAlreadyExists
	}
	if _, ok := r.sources[s.SourceID]; !ok {
		return nil, errs.ErrSourceNotDefined
	}

	sig := s
	applyDefaults(&sig)

	if err := datatype.CheckAlignment(sig.DataType, int(sig.SamplesPerData)); err != nil {
		return nil, err
	}

	r.signals[sig.ID] = &sig
	_ = r.signalNames.Track(sig.Name)

	return &sig, nil
}

// Signal looks up a defined signal by ID.
func (r *Registry) Signal(id uint16) (*Signal, bool) {
	s, ok := r.signals[id]

	return s, ok
}

// Signals returns every defined signal, including the reserved phantom
// signal 0, ordered by signal_id.
func (r *Registry) Signals() []*Signal {
	return sortedValues(r.signals)
}

func applyDefaults(s *Signal) {
	if s.SamplesPerData == 0 {
		s.SamplesPerData = DefaultSamplesPerData
	}
	if s.SampleDecimateFactor == 0 {
		s.SampleDecimateFactor = DefaultSampleDecimateFactor
	}
	if s.EntriesPerSummary == 0 {
		s.EntriesPerSummary = DefaultEntriesPerSummary
	}
	if s.SummaryDecimateFactor == 0 {
		s.SummaryDecimateFactor = DefaultSummaryDecimateFactor
	}
	if s.AnnotationDecimateFactor == 0 {
		s.AnnotationDecimateFactor = DefaultAnnotationDecimateFactor
	}
	if s.UTCDecimateFactor == 0 {
		s.UTCDecimateFactor = DefaultUTCDecimateFactor
	}
}

func sortedValues[K ~uint16, V any](m map[K]*V) []*V {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	insertionSort(keys)

	out := make([]*V, 0, len(m))
	for _, k := range keys {
		out = append(out, m[k])
	}

	return out
}

// insertionSort sorts small key slices (source/signal counts are bounded by
// the 16-bit ID space but typically tiny) without pulling in sort's
// reflection-based Slice.
func insertionSort[K ~uint16](keys []K) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
}
