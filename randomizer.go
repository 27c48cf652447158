// Package randomizer holds the data types shared by the midi-randomizer
// packages: the step Grid a melody is converted to, pitch and interval naming,
// the set of locked steps and the error kinds used to classify failures.
//
// The processing itself lives in the subpackages: codec converts between note
// events and grids, model derives pitch follower and rhythm statistics from a
// grid, variation generates new grids from those statistics and store persists
// the statistics as text files.
package randomizer

import (
	"sort"

	"github.com/Southclaws/fault/ftag"
)

type (
	// Rand is the source of randomness for everything that samples. It is
	// satisfied by *rand.Rand; pass a seeded source for reproducible results.
	Rand interface {
		Float64() float64
		Intn(n int) int
	}

	// LockedSteps is the set of step indices that the variation engine must
	// never modify. A nil LockedSteps locks nothing.
	LockedSteps map[int]struct{}
)

// Error kinds, attached to errors with ftag so that callers can decide if the
// current input should be skipped or if something is wrong with the models.
const (
	// KindPrecondition marks inputs the codec cannot handle: missing notes,
	// wrong time signature etc.
	KindPrecondition ftag.Kind = "precondition"
	// KindModel marks inconsistent statistics, e.g. sampling followers for a
	// pitch class that has none.
	KindModel ftag.Kind = "model"
	// KindFormat marks malformed persisted statistics.
	KindFormat ftag.Kind = "format"
)

// NewLockedSteps returns a LockedSteps containing the given steps.
func NewLockedSteps(steps ...int) LockedSteps {
	ret := make(LockedSteps, len(steps))
	for _, s := range steps {
		ret[s] = struct{}{}
	}
	return ret
}

// Has returns true if the step is locked.
func (l LockedSteps) Has(step int) bool {
	_, ok := l[step]
	return ok
}

// Add locks a step.
func (l LockedSteps) Add(step int) {
	l[step] = struct{}{}
}

// Sorted returns the locked steps in ascending order.
func (l LockedSteps) Sorted() []int {
	ret := make([]int, 0, len(l))
	for s := range l {
		ret = append(ret, s)
	}
	sort.Ints(ret)
	return ret
}
