// Package codec converts between note events with tick timing and the step
// Grid representation.
//
// The conversion is intentionally lossy: only note-on positions and velocities
// survive decoding, and encoding always produces a single 4/4 note track with
// fixed note lengths of one step.
package codec

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sort"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	randomizer "github.com/bernardtaubert/midi-randomizer"
)

type (
	// EventKind tells if an Event starts or ends a note.
	EventKind int

	// Event is a note event. Tick is the absolute position of the event; Delta
	// is the distance to the previous event of the track and is only filled
	// by Encode.
	Event struct {
		Tick     int64
		Delta    int64
		Kind     EventKind
		Channel  int
		Pitch    int
		Velocity int
	}

	// TimeSignature is a time signature marker found in the source.
	TimeSignature struct {
		Numerator   int
		Denominator int
	}

	// Sequence is the decoded content of the note track of a MIDI file, as
	// handed to Decode. Length is the total duration of the note track in
	// ticks.
	Sequence struct {
		TicksPerQuarter int
		Length          int64
		TimeSignatures  []TimeSignature
		Events          []Event
	}

	// Track is the result of Encode: a single note track plus the fixed header
	// metadata needed to write it back to a file. Length is the position of
	// the end of the track in ticks.
	Track struct {
		Name            string
		TicksPerQuarter int
		Tempo           int // microseconds per quarter note
		TimeSignature   TimeSignature
		Length          int64
		Events          []Event
	}
)

const (
	NoteOn EventKind = iota
	NoteOff
)

const (
	// DefaultQuantization gives a 1/2**5 = 1/32 note grid.
	DefaultQuantization = 5
	// DefaultDecodeOffset is added to the MIDI note number when decoding.
	DefaultDecodeOffset = 12
	// DefaultEncodeOffset is added to the grid pitch when encoding, undoing
	// DefaultDecodeOffset.
	DefaultEncodeOffset = -DefaultDecodeOffset
	// DefaultTicksPerQuarter is the resolution of encoded tracks.
	DefaultTicksPerQuarter = 480
	// DefaultTempo is the tempo of encoded tracks in microseconds per quarter
	// note, i.e. 100 BPM.
	DefaultTempo = 600000
	// DefaultChannel is the channel of encoded note events.
	DefaultChannel = 1
	// MaxQuantization is the finest supported grid, 1/2**8 = 1/256 notes.
	MaxQuantization = 8
	// MaxBars is the longest supported sequence.
	MaxBars = 8
	// MaxSteps is the length of the longest grid Decode returns: MaxBars at
	// MaxQuantization.
	MaxSteps = MaxBars << MaxQuantization
)

var (
	ErrNoNotes            = errors.New("the note track does not contain any note-on events")
	ErrNoTimeSignature    = errors.New("no time signature found")
	ErrTimeSignatureCount = errors.New("more than one time signature found")
	ErrNotFourFour        = errors.New("time signature is not 4/4")
	ErrTicksPerQuarter    = errors.New("ticks per quarter note must be positive")
	ErrQuantization       = errors.New("quantization must be between 0 and 8")
	ErrEmptyTrack         = errors.New("the note track is shorter than one step")
	ErrPitchRange         = errors.New("pitch is outside of the range 0 .. 127")
	ErrTooLong            = errors.New("the note track is longer than 8 bars")
	ErrPolyphonic         = errors.New("more than one note starts at the same step")
)

// FourFour is the only time signature the codec accepts and produces.
var FourFour = TimeSignature{Numerator: 4, Denominator: 4}

func precondition(err error, msg string) error {
	return fault.Wrap(err, fmsg.With(msg), ftag.With(randomizer.KindPrecondition))
}

// CheckTimeSignatures returns nil if there is exactly one time signature and
// it is 4/4.
func CheckTimeSignatures(sigs []TimeSignature) error {
	switch {
	case len(sigs) == 0:
		return precondition(ErrNoTimeSignature, "checking time signature")
	case len(sigs) > 1:
		return precondition(ErrTimeSignatureCount, fmt.Sprintf("checking time signature (found %d)", len(sigs)))
	case sigs[0] != FourFour:
		return precondition(ErrNotFourFour, fmt.Sprintf("checking time signature (found %d/%d)", sigs[0].Numerator, sigs[0].Denominator))
	}
	return nil
}

// NearestPow2 returns the power of two nearest to x, rounding down when x is
// exactly halfway between two powers of two: 17 and 24 give 16, 25 gives 32.
// For x < 1 it returns 0.
func NearestPow2(x int) int {
	if x < 1 {
		return 0
	}
	low := 1 << (bits.Len(uint(x)) - 1)
	if low == x {
		return x
	}
	high := low << 1
	if high-x < x-low {
		return high
	}
	return low
}

// Decode converts the note-on events of a Sequence into a Grid. The grid has
// 2**quantization steps per whole note and its length is the length of the
// sequence normalized with NearestPow2, at most MaxBars bars. Events at or
// after the end of the normalized grid are dropped. Each retained note-on sets
// the velocity of pitch+pitchOffset at its step; two different pitches at one
// step give ErrPolyphonic.
//
// Event positions are expected to be quantized already: a position between
// two steps is truncated to the earlier one.
func Decode(seq Sequence, quantization, pitchOffset int) (randomizer.Grid, error) {
	if seq.TicksPerQuarter <= 0 {
		return nil, precondition(ErrTicksPerQuarter, "decoding sequence")
	}
	if quantization < 0 || quantization > MaxQuantization {
		return nil, precondition(ErrQuantization, fmt.Sprintf("decoding sequence (quantization %d)", quantization))
	}
	if err := CheckTimeSignatures(seq.TimeSignatures); err != nil {
		return nil, err
	}
	hasNotes := false
	for _, e := range seq.Events {
		if e.Kind == NoteOn && e.Velocity > 0 {
			hasNotes = true
			break
		}
	}
	if !hasNotes {
		return nil, precondition(ErrNoNotes, "decoding sequence")
	}
	stepsPerWhole := int64(1) << quantization
	ticksPerWhole := 4 * int64(seq.TicksPerQuarter)
	numSteps := int(math.RoundToEven(float64(seq.Length*stepsPerWhole) / float64(ticksPerWhole)))
	length := NearestPow2(numSteps)
	if length == 0 {
		return nil, precondition(ErrEmptyTrack, fmt.Sprintf("decoding sequence of %d ticks", seq.Length))
	}
	if length > MaxBars<<quantization {
		return nil, precondition(ErrTooLong, fmt.Sprintf("decoding sequence of %d steps", length))
	}
	grid := randomizer.NewGrid(length)
	for _, e := range seq.Events {
		if e.Kind != NoteOn || e.Velocity <= 0 || e.Tick < 0 {
			continue
		}
		step := e.Tick * stepsPerWhole / ticksPerWhole
		if step >= int64(length) {
			continue // truncate notes beyond the normalized length
		}
		pitch := e.Pitch + pitchOffset
		if pitch < 0 || pitch > randomizer.MaxNote {
			return nil, precondition(ErrPitchRange, fmt.Sprintf("decoding note %d at tick %d with offset %d", e.Pitch, e.Tick, pitchOffset))
		}
		if p, ok := grid[step].Pitch(); ok && p != pitch {
			return nil, precondition(ErrPolyphonic, fmt.Sprintf("decoding note %d at step %d", e.Pitch, step))
		}
		velocity := e.Velocity
		if velocity > 127 {
			velocity = 127
		}
		grid[step][pitch] = byte(velocity)
	}
	return grid, nil
}

// Encode converts a Grid into a Track. Every sounding pitch becomes a note-on
// at the start of its step and a note-off one step later, both with
// DefaultVelocity, pitch shifted by pitchOffset. Events are sorted by time;
// at equal times every note-on comes before any note-off. The end of the track
// is placed at the end of the grid so that the loop length survives a round
// trip.
func Encode(grid randomizer.Grid, name string, quantization, pitchOffset, ticksPerQuarter, tempo int) Track {
	stepTick := func(step int) int64 {
		return int64(step) * 4 * int64(ticksPerQuarter) >> quantization
	}
	type timedEvent struct {
		key   int64 // doubled tick; note-offs get +1 to sort after note-ons
		event Event
	}
	var timed []timedEvent
	for t := range grid {
		for i, v := range grid[t] {
			if v == 0 {
				continue
			}
			pitch := i + pitchOffset
			if pitch < 0 || pitch > randomizer.MaxNote {
				continue
			}
			on := Event{Tick: stepTick(t), Kind: NoteOn, Channel: DefaultChannel, Pitch: pitch, Velocity: randomizer.DefaultVelocity}
			off := Event{Tick: stepTick(t + 1), Kind: NoteOff, Channel: DefaultChannel, Pitch: pitch, Velocity: randomizer.DefaultVelocity}
			timed = append(timed, timedEvent{key: on.Tick * 2, event: on}, timedEvent{key: off.Tick*2 + 1, event: off})
		}
	}
	sort.SliceStable(timed, func(i, j int) bool { return timed[i].key < timed[j].key })
	events := make([]Event, len(timed))
	var last int64
	for i, te := range timed {
		e := te.event
		e.Delta = e.Tick - last
		last = e.Tick
		events[i] = e
	}
	length := stepTick(len(grid))
	if length < last {
		length = last
	}
	return Track{
		Name:            name,
		TicksPerQuarter: ticksPerQuarter,
		Tempo:           tempo,
		TimeSignature:   FourFour,
		Length:          length,
		Events:          events,
	}
}
