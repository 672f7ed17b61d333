// Package stats implements the streaming statistics behind every SUMMARY
// entry: count, min, max, mean, and standard deviation (a SUMMARY chunk
// stores all of them except the count).
// Mean and variance are accumulated with Welford's online algorithm so a
// level-0 writer never needs to buffer its raw samples, and two partial
// accumulators (e.g. adjacent summary windows being merged into the next
// level up) combine with Chan et al.'s parallel variance formula.
package stats

import "math"

// Accumulator holds the running moments for one summary window. The zero
// value is ready to use.
type Accumulator struct {
	count  uint64
	mean   float64
	m2     float64 // sum of squared deviations from the running mean
	min    float64
	max    float64
	hasMin bool
}

// Reset clears the accumulator back to its zero value.
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Count returns the number of samples folded into the accumulator.
func (a *Accumulator) Count() uint64 { return a.count }

// Add folds one sample into the accumulator using Welford's method.
func (a *Accumulator) Add(v float64) {
	if math.IsNaN(v) {
		return // gap-filled samples never enter the real-domain statistics
	}

	a.count++
	delta := v - a.mean
	a.mean += delta / float64(a.count)
	delta2 := v - a.mean
	a.m2 += delta * delta2

	if !a.hasMin || v < a.min {
		a.min = v
		a.hasMin = true
	}
	if a.count == 1 || v > a.max {
		a.max = v
	}
}

// AddAll folds every value in vs into the accumulator in order.
func (a *Accumulator) AddAll(vs []float64) {
	for _, v := range vs {
		a.Add(v)
	}
}

// Merge combines other into a, producing the statistics as if every sample
// folded into other had instead been folded directly into a. Uses Chan,
// Golub & LeVeque's parallel combination formula so a and other can each
// have been accumulated independently (e.g. one per decimated child
// window) and still recombine exactly.
func (a *Accumulator) Merge(other *Accumulator) {
	if other.count == 0 {
		return
	}
	if a.count == 0 {
		*a = *other

		return
	}

	na, nb := float64(a.count), float64(other.count)
	delta := other.mean - a.mean
	total := na + nb

	newMean := a.mean + delta*nb/total
	newM2 := a.m2 + other.m2 + delta*delta*na*nb/total

	a.mean = newMean
	a.m2 = newM2
	a.count += other.count

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}
}

// FromResult reconstructs an approximate Accumulator from a previously
// finalized Result plus the sample count it covered. Used when a summary
// entry read back from disk (which stores only the finalized tuple, not
// the running moments) needs to be merged with other accumulators — the
// reconstruction is exact whenever count matches the number of samples
// that actually produced r.
func FromResult(r Result, count uint64) Accumulator {
	if count == 0 {
		return Accumulator{}
	}

	return Accumulator{
		count:  count,
		mean:   r.Mean,
		m2:     r.StdDev * r.StdDev * float64(count),
		min:    r.Min,
		max:    r.Max,
		hasMin: true,
	}
}

// Result is the finalized, immutable view of an accumulator's moments.
type Result struct {
	Count  uint64
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Finalize computes the final mean/min/max/population-stddev from the
// accumulator's running moments. A zero-count accumulator returns a
// Result of all zeros except Min/Max, which come back as NaN to signal
// "no data in this window" to a caller building a SUMMARY chunk.
func (a *Accumulator) Finalize() Result {
	if a.count == 0 {
		return Result{Min: math.NaN(), Max: math.NaN()}
	}

	variance := a.m2 / float64(a.count)

	return Result{
		Count:  a.count,
		Min:    a.min,
		Max:    a.max,
		Mean:   a.mean,
		StdDev: math.Sqrt(variance),
	}
}
