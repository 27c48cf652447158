package model

import (
	"github.com/viterin/vek"

	randomizer "github.com/bernardtaubert/midi-randomizer"
)

type (
	// Histogram counts inter-onset intervals: Histogram[i] is the number of
	// times the next note started i steps after the previous one. Interval 0
	// is reserved and means "no statistic".
	Histogram []int

	// Rhythm holds the rhythm statistics of a grid. The intervals are counted
	// between consecutive sounding steps only; there is no interval from the
	// last note back to the first, so the counts of Global sum to
	// NoteCount - 1.
	Rhythm struct {
		Global        Histogram
		PerStep       []Histogram // indexed by the step the interval starts at
		PitchSequence []int
		NoteCount     int
	}
)

// Add adds count to interval, growing the histogram if needed. Negative
// intervals are ignored.
func (h *Histogram) Add(interval, count int) {
	if interval < 0 {
		return
	}
	if interval >= len(*h) {
		grown := make(Histogram, interval+1)
		copy(grown, *h)
		*h = grown
	}
	(*h)[interval] += count
}

// Total returns the sum of all counts.
func (h Histogram) Total() int {
	if len(h) == 0 {
		return 0
	}
	return int(vek.Sum(h.floats()))
}

// ArgMax returns the most frequent interval, the smallest one on ties, or 0
// if the histogram has no positive counts.
func (h Histogram) ArgMax() int {
	if len(h) == 0 {
		return 0
	}
	i := vek.ArgMax(h.floats())
	if h[i] <= 0 {
		return 0
	}
	return i
}

// Multiset expands the histogram into a list where every interval with a
// positive count appears count times, in ascending order.
func (h Histogram) Multiset() []int {
	var ret []int
	for interval, count := range h {
		for j := 0; j < count; j++ {
			ret = append(ret, interval)
		}
	}
	return ret
}

func (h Histogram) floats() []float64 {
	ret := make([]float64, len(h))
	for i, v := range h {
		ret[i] = float64(v)
	}
	return ret
}

// BuildRhythm scans the sounding steps of the grid in order. For every
// sounding step after the first, the distance to the previous sounding step is
// counted both in the global histogram and in the histogram of the previous
// step.
func BuildRhythm(grid randomizer.Grid) Rhythm {
	r := Rhythm{
		Global:  make(Histogram, randomizer.MaxBreak+1),
		PerStep: make([]Histogram, len(grid)),
	}
	prev := -1
	for step := range grid {
		pitch, ok := grid[step].Pitch()
		if !ok {
			continue
		}
		if prev >= 0 {
			interval := step - prev
			r.Global.Add(interval, 1)
			r.PerStep[prev].Add(interval, 1)
		}
		r.PitchSequence = append(r.PitchSequence, pitch)
		r.NoteCount++
		prev = step
	}
	return r
}

// MostFrequent returns the most frequent interval observed for notes starting
// at step, or 0 if there is no statistic for the step.
func (r *Rhythm) MostFrequent(step int) int {
	if step < 0 || step >= len(r.PerStep) {
		return 0
	}
	return r.PerStep[step].ArgMax()
}

// AddPerStep adds quantity to the interval statistic of step, growing PerStep
// if the step is beyond its current length.
func (r *Rhythm) AddPerStep(step, interval, quantity int) {
	if step < 0 {
		return
	}
	if step >= len(r.PerStep) {
		grown := make([]Histogram, step+1)
		copy(grown, r.PerStep)
		r.PerStep = grown
	}
	r.PerStep[step].Add(interval, quantity)
}

// MergePerStep adds previously stored per-step statistics to r.
func (r *Rhythm) MergePerStep(perStep []Histogram) {
	for step, h := range perStep {
		for interval, count := range h {
			if count != 0 {
				r.AddPerStep(step, interval, count)
			}
		}
	}
}

// Copy makes a deep copy of r.
func (r *Rhythm) Copy() Rhythm {
	ret := Rhythm{
		Global:        append(Histogram(nil), r.Global...),
		PitchSequence: append([]int(nil), r.PitchSequence...),
		NoteCount:     r.NoteCount,
	}
	if r.PerStep != nil {
		ret.PerStep = make([]Histogram, len(r.PerStep))
		for i, h := range r.PerStep {
			if h != nil {
				ret.PerStep[i] = append(Histogram(nil), h...)
			}
		}
	}
	return ret
}

// IntervalCount is one entry of a rhythm summary.
type IntervalCount struct {
	Interval int
	Count    int
}

// Summary lists the global interval counts from the longest interval to the
// shortest. Intervals with a conventional note value name are always listed,
// up to MaxBreak, the others only if they occur.
func (r *Rhythm) Summary() []IntervalCount {
	var ret []IntervalCount
	for i := max(len(r.Global), randomizer.MaxBreak+1) - 1; i > 0; i-- {
		count := 0
		if i < len(r.Global) {
			count = r.Global[i]
		}
		if randomizer.IsNamedInterval(i) || count > 0 {
			ret = append(ret, IntervalCount{Interval: i, Count: count})
		}
	}
	return ret
}
