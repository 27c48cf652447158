// Package model derives the statistics the variation engine samples from: the
// pitch follower transition table, the per-step follower map and the rhythm
// interval histograms.
package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	randomizer "github.com/bernardtaubert/midi-randomizer"
)

type (
	// Follower is an observed transition from a pitch class to an absolute
	// pitch. Quantity counts how many times the transition was observed.
	Follower struct {
		Pitch    int
		Quantity int
	}

	// Followers is the transition table: for each pitch class, the list of
	// pitches that followed it, unique by pitch, in the order they were first
	// observed.
	Followers [randomizer.NumRawPitches][]Follower

	// StepFollowers maps each sounding step to the pitch of the next sounding
	// step. The last sounding step maps to the first one.
	StepFollowers map[int]int

	// Aggregate accumulates Followers from many files. It is safe for
	// concurrent use.
	Aggregate struct {
		mu        sync.Mutex
		followers Followers
		files     int
	}
)

var ErrNoFollowers = errors.New("pitch class has no followers")

// BuildFollowers scans the sounding steps of the grid in order and counts every
// transition from the class of a pitch to the next sounding pitch. The
// sequence is closed into a loop: the class of the last sounding pitch gets an
// edge to the first sounding pitch, so that every pitch class occurring in the
// grid has at least one follower.
func BuildFollowers(grid randomizer.Grid) (Followers, StepFollowers) {
	var f Followers
	sf := StepFollowers{}
	first, prev, prevStep := -1, -1, -1
	for step := range grid {
		pitch, ok := grid[step].Pitch()
		if !ok {
			continue
		}
		if first == -1 {
			first = pitch
		}
		if prevStep >= 0 {
			f.Add(randomizer.RawPitchOf(prev), pitch, 1)
			sf[prevStep] = pitch
		}
		prev, prevStep = pitch, step
	}
	if prevStep >= 0 {
		f.Add(randomizer.RawPitchOf(prev), first, 1)
		sf[prevStep] = first
	}
	return f, sf
}

// Add adds quantity to the edge from class raw to pitch, creating the edge if
// it does not exist yet.
func (f *Followers) Add(raw randomizer.RawPitch, pitch, quantity int) {
	list := f[raw]
	for i := range list {
		if list[i].Pitch == pitch {
			list[i].Quantity += quantity
			return
		}
	}
	f[raw] = append(list, Follower{Pitch: pitch, Quantity: quantity})
}

// Copy makes a deep copy of the table.
func (f *Followers) Copy() Followers {
	var ret Followers
	for i, list := range f {
		if list != nil {
			ret[i] = append([]Follower(nil), list...)
		}
	}
	return ret
}

// Len returns the total number of edges in the table.
func (f *Followers) Len() int {
	n := 0
	for _, list := range f {
		n += len(list)
	}
	return n
}

// Merge returns a new table with the edges of both a and b. The quantities of
// edges with the same class and destination are added; edges only in b are
// appended after those of a.
func Merge(a, b Followers) Followers {
	ret := a.Copy()
	for raw, list := range b {
		for _, e := range list {
			ret.Add(randomizer.RawPitch(raw), e.Pitch, e.Quantity)
		}
	}
	return ret
}

func noFollowers(raw randomizer.RawPitch) error {
	return fault.Wrap(ErrNoFollowers, fmsg.With(fmt.Sprintf("sampling followers of %v", raw)), ftag.With(randomizer.KindModel))
}

// SampleUniform returns one of the followers of class raw, each with equal
// probability regardless of its quantity.
func (f *Followers) SampleUniform(raw randomizer.RawPitch, rng randomizer.Rand) (int, error) {
	if raw < 0 || raw >= randomizer.NumRawPitches || len(f[raw]) == 0 {
		return 0, noFollowers(raw)
	}
	list := f[raw]
	return list[rng.Intn(len(list))].Pitch, nil
}

// SampleByQuantity returns one of the followers of class raw with probability
// proportional to its quantity. Edges with a non-positive quantity are never
// chosen.
func (f *Followers) SampleByQuantity(raw randomizer.RawPitch, rng randomizer.Rand) (int, error) {
	if raw < 0 || raw >= randomizer.NumRawPitches {
		return 0, noFollowers(raw)
	}
	total := 0
	for _, e := range f[raw] {
		if e.Quantity > 0 {
			total += e.Quantity
		}
	}
	if total == 0 {
		return 0, noFollowers(raw)
	}
	r := rng.Intn(total)
	for _, e := range f[raw] {
		if e.Quantity <= 0 {
			continue
		}
		if r < e.Quantity {
			return e.Pitch, nil
		}
		r -= e.Quantity
	}
	panic("unreachable")
}

// Merge adds the followers of one file to the aggregate.
func (a *Aggregate) Merge(f Followers) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.followers = Merge(a.followers, f)
	a.files++
}

// Followers returns a copy of the aggregated table.
func (a *Aggregate) Followers() Followers {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.followers.Copy()
}

// Files returns the number of tables merged so far.
func (a *Aggregate) Files() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files
}
