// Package variation generates new grids from a source grid and the statistics
// built from it: pitches are replaced by sampled followers, notes are moved by
// octaves, pitches are brought into a range and the rhythm is resequenced.
//
// All operations skip locked steps.
package variation

import (
	"errors"
	"fmt"
	"io"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/model"
)

type (
	// Models are the statistics of the source grid that the engine samples
	// from.
	Models struct {
		Followers     model.Followers
		StepFollowers model.StepFollowers
		Rhythm        model.Rhythm
	}

	// Transposition selects the octave transposition algorithm.
	//
	// Algorithm 0 does nothing. (0,1] moves notes that repeat into their
	// follower down an octave. (1,2] moves notes randomly down or up, going
	// down more often the closer Algorithm is to 1. (2,3] moves notes down.
	// (3,4] moves notes down or up with equal chance. Probability gates each
	// note; with Same, notes that repeat into their follower bypass the gate.
	Transposition struct {
		Algorithm   float64 `yaml:"algorithm" json:"algorithm"`
		Probability float64 `yaml:"probability" json:"probability"`
		Same        bool    `yaml:"same" json:"same"`
	}

	// Params control one variation.
	//
	// RandomNotes 0 keeps the pitches. (0,1] replaces a pitch with a follower
	// with the probability RandomNotes. (1,2] blends between followers and a
	// C major scale, (2,3] between quantity weighted followers and the C major
	// scale. RandomRhythm 0 keeps the rhythm, 1 resequences it with intervals
	// drawn from the global statistics and 2 with the per-step statistics.
	Params struct {
		RandomNotes  float64
		Transpose    Transposition
		NoteMin      int
		NoteMax      int
		RandomRhythm int
	}

	// Engine generates variations. Rand must be set; Locks and Log are
	// optional.
	Engine struct {
		Rand  randomizer.Rand
		Locks randomizer.LockedSteps
		Log   logrus.FieldLogger
	}
)

var (
	ErrNoRhythm      = errors.New("no rhythm intervals to draw from")
	ErrEmptySequence = errors.New("the grid has no notes to resequence")
)

// cMajor spans two octaves of C major from C5.
var cMajor = [...]int{84, 86, 88, 89, 91, 93, 95, 96, 98, 100, 101, 103, 105, 107}

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func (e *Engine) log() logrus.FieldLogger {
	if e.Log == nil {
		return discard
	}
	return e.Log
}

func modelError(err error, msg string) error {
	return fault.Wrap(err, fmsg.With(msg), ftag.With(randomizer.KindModel))
}

// Generate returns a new grid made from grid by randomizing the pitches,
// transposing octaves, correcting the range and randomizing the rhythm, in
// that order. grid itself is not modified.
func (e *Engine) Generate(grid randomizer.Grid, m Models, p Params) (randomizer.Grid, error) {
	work := grid.Copy()
	if err := e.RandomizePitches(work, &m.Followers, p.RandomNotes); err != nil {
		return nil, err
	}
	e.Transpose(work, m.StepFollowers, p.Transpose)
	ClampRange(work, p.NoteMin, p.NoteMax, e.Locks)
	if err := e.RandomizeRhythm(work, &m.Rhythm, p.RandomRhythm); err != nil {
		return nil, err
	}
	return work, nil
}

// RandomizePitches replaces the pitches of the sounding, unlocked steps of grid
// in place. See Params for the meaning of mode.
func (e *Engine) RandomizePitches(grid randomizer.Grid, f *model.Followers, mode float64) error {
	r, weight := resolveRegime(mode, 3)
	log := e.log().WithField("mode", mode)
	switch r {
	case 0:
		log.Info("random notes: no randomization")
		return nil
	case 1:
		log.Info("random notes: choose random followers (file-based)")
	case 2:
		log.Info("random notes: choose random followers of C major")
	case 3:
		log.Info("random notes: choose random followers by quantity (file-based)")
	}
	for step := range grid {
		if e.Locks.Has(step) {
			continue
		}
		pitch, ok := grid[step].Pitch()
		if !ok {
			continue
		}
		raw := randomizer.RawPitchOf(pitch)
		var (
			next int
			err  error
		)
		switch draw := e.Rand.Float64(); r {
		case 1:
			if draw > weight {
				continue
			}
			next, err = f.SampleUniform(raw, e.Rand)
		case 2:
			if draw > weight {
				next, err = f.SampleUniform(raw, e.Rand)
			} else {
				next = cMajor[e.Rand.Intn(len(cMajor))]
			}
		case 3:
			if draw < weight {
				next, err = f.SampleByQuantity(raw, e.Rand)
			} else {
				next = cMajor[e.Rand.Intn(len(cMajor))]
			}
		}
		if err != nil {
			return modelError(err, fmt.Sprintf("randomizing pitch %v at step %d", randomizer.PitchName(pitch), step))
		}
		grid[step].Set(next)
	}
	return nil
}

// Transpose moves the sounding, unlocked notes of grid by octaves in place.
// A note repeats if its pitch equals the pitch that followed its step in the
// source grid. A shift that would leave the valid pitch range is not applied.
func (e *Engine) Transpose(grid randomizer.Grid, sf model.StepFollowers, t Transposition) {
	r, _ := resolveRegime(t.Algorithm, 4)
	log := e.log().WithFields(logrus.Fields{"algorithm": t.Algorithm, "probability": t.Probability, "same": t.Same})
	switch r {
	case 0:
		log.Info("transposition: no transposition")
		return
	case 1:
		log.Info("transposition: -1 octave when followed by same")
	case 2:
		log.Info("transposition: random transpose notes by +1 octave")
	case 3:
		log.Info("transposition: random transpose notes by -1 octave")
	case 4:
		log.Info("transposition: random transpose notes by +-1 octave")
	}
	for step := range grid {
		if e.Locks.Has(step) {
			continue
		}
		pitch, ok := grid[step].Pitch()
		if !ok {
			continue
		}
		follower, has := sf[step]
		repeating := has && follower == pitch
		shift := 0
		switch r {
		case 1:
			if repeating && (t.Same || e.Rand.Float64() < t.Probability) {
				shift = -12
			}
		case 2:
			if t.Same && repeating {
				shift = e.upOrDown(1, t.Algorithm)
			} else if e.Rand.Float64() < t.Probability {
				if shift = e.upOrDown(1, t.Algorithm); shift < 0 && !repeating {
					shift = 0
				}
			}
		case 3:
			if t.Same && repeating {
				shift = -12
			} else if e.Rand.Float64() < t.Probability {
				if e.Rand.Float64()+2 < t.Algorithm || repeating {
					shift = -12
				}
			}
		case 4:
			if (t.Same && repeating) || e.Rand.Float64() < t.Probability {
				if e.Rand.Float64() >= 0.5 {
					shift = -12
				} else {
					shift = 12
				}
			}
		}
		if shift != 0 && !grid[step].Transpose(pitch, shift) {
			log.WithFields(logrus.Fields{"step": step, "pitch": pitch, "shift": shift}).Debug("transposition out of range, not applied")
		}
	}
}

// upOrDown returns -12 if a draw offset by base reaches alg, +12 otherwise.
func (e *Engine) upOrDown(base, alg float64) int {
	if e.Rand.Float64()+base >= alg {
		return -12
	}
	return 12
}

// ClampPitch returns pitch moved one octave towards the range [min, max] if it
// lies outside. The correction is a single octave: a pitch more than an
// octave out of range stays out of range. If the corrected pitch is not a
// valid MIDI note, pitch is returned unchanged.
func ClampPitch(pitch, min, max int) int {
	ret := pitch
	switch {
	case pitch > max:
		ret = pitch - 12
	case pitch < min:
		ret = pitch + 12
	}
	if ret < 0 || ret > randomizer.MaxNote {
		return pitch
	}
	return ret
}

// ClampRange applies ClampPitch to the sounding, unlocked steps of grid in
// place, in a single pass.
func ClampRange(grid randomizer.Grid, min, max int, locks randomizer.LockedSteps) {
	for step := range grid {
		if locks.Has(step) {
			continue
		}
		pitch, ok := grid[step].Pitch()
		if !ok {
			continue
		}
		if c := ClampPitch(pitch, min, max); c != pitch {
			grid[step].Transpose(pitch, c-pitch)
		}
	}
}

// RandomizeRhythm resequences the notes of grid in place. The pitches of the
// sounding steps are collected in order, the unlocked steps are cleared, and
// starting from step 0 a cursor advances by intervals drawn from the rhythm
// statistics, placing the collected pitches cyclically at every unlocked
// landing step. See Params for the meaning of mode; modes other than 1 and 2
// leave the grid unchanged.
func (e *Engine) RandomizeRhythm(grid randomizer.Grid, rhythm *model.Rhythm, mode int) error {
	log := e.log().WithField("mode", mode)
	switch mode {
	case 1:
		log.Info("random rhythm: choose random rhythm (file-based)")
	case 2:
		log.Info("random rhythm: choose random rhythm (step-based)")
	default:
		log.Info("random rhythm: no randomization")
		return nil
	}
	var seq []int
	for step := range grid {
		if pitch, ok := grid[step].Pitch(); ok {
			seq = append(seq, pitch)
		}
	}
	if len(seq) == 0 {
		return modelError(ErrEmptySequence, "randomizing rhythm")
	}
	global := rhythm.Global.Multiset()
	if len(global) == 0 {
		return modelError(ErrNoRhythm, "randomizing rhythm (global statistics)")
	}
	drawGlobal := func() int {
		return global[e.Rand.Intn(len(global))]
	}
	for step := range grid {
		if !e.Locks.Has(step) {
			grid[step].Clear()
		}
	}
	if !e.Locks.Has(0) {
		grid[0].Set(seq[0])
	}
	cursor, counter := 0, 0
	for cursor < len(grid) {
		var interval int
		if mode == 2 {
			interval = e.drawAtStep(rhythm, cursor, drawGlobal)
		} else {
			interval = drawGlobal()
		}
		if interval <= 0 {
			return modelError(ErrNoRhythm, fmt.Sprintf("randomizing rhythm at step %d (drew interval %d)", cursor, interval))
		}
		cursor += interval
		counter++
		if cursor >= len(grid) {
			break
		}
		if e.Locks.Has(cursor) {
			continue
		}
		grid[cursor].Set(seq[counter%len(seq)])
	}
	return nil
}

// drawAtStep draws from the statistic of step, falling back to the global
// statistic if the step has none or if the draw is the reserved interval 0.
func (e *Engine) drawAtStep(rhythm *model.Rhythm, step int, global func() int) int {
	if step >= len(rhythm.PerStep) {
		return global()
	}
	ms := rhythm.PerStep[step].Multiset()
	if len(ms) == 0 {
		return global()
	}
	if v := ms[e.Rand.Intn(len(ms))]; v != 0 {
		return v
	}
	return global()
}
