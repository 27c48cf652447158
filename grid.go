package randomizer

const (
	// NumPitches is the number of MIDI note numbers a Step can hold.
	NumPitches = 128
	// MaxNote is the highest valid MIDI note number (G8).
	MaxNote = NumPitches - 1
	// MaxBreak is the longest inter-onset interval the rhythm statistics
	// reserve space for, in steps: 128 x 32th notes, i.e. four bars at the
	// default quantization.
	MaxBreak = 128
	// DefaultVelocity is the velocity of every note written by the variation
	// engine.
	DefaultVelocity = 100
)

type (
	// Step is one time slot of a Grid: a velocity for each MIDI note number,
	// 0 meaning silent. A well-formed step has at most one non-zero velocity,
	// as the grids are monophonic.
	Step [NumPitches]byte

	// Grid is a quantized melody as a sequence of Steps. Grids created by the
	// codec always have a power of two length; for an 8-bar loop at 1/32
	// quantization that is 256 steps.
	Grid []Step
)

// NewGrid returns a silent grid of given length.
func NewGrid(length int) Grid {
	return make(Grid, length)
}

// Copy makes a deep copy of a Grid.
func (g Grid) Copy() Grid {
	ret := make(Grid, len(g))
	copy(ret, g)
	return ret
}

// Pitch returns the sounding pitch of the step and true, or 0 and false if the
// step is silent.
func (s *Step) Pitch() (int, bool) {
	for p, v := range s {
		if v > 0 {
			return p, true
		}
	}
	return 0, false
}

// Set silences all pitches of the step and then sets the given pitch sounding
// with DefaultVelocity. Pitches outside 0 .. MaxNote are ignored and leave the
// step untouched.
func (s *Step) Set(pitch int) {
	if pitch < 0 || pitch > MaxNote {
		return
	}
	s.Clear()
	s[pitch] = DefaultVelocity
}

// Clear silences all pitches of the step.
func (s *Step) Clear() {
	*s = Step{}
}

// Transpose moves the velocity of pitch by the given number of semitones. The
// shift is not applied if pitch is not sounding or if the result would fall
// outside 0 .. MaxNote. Returns true if the step was changed.
func (s *Step) Transpose(pitch, semitones int) bool {
	target := pitch + semitones
	if pitch < 0 || pitch > MaxNote || target < 0 || target > MaxNote {
		return false
	}
	if s[pitch] == 0 || semitones == 0 {
		return false
	}
	s[target] = s[pitch]
	s[pitch] = 0
	return true
}

// Sounding returns the indices of all steps with an active note, in order.
func (g Grid) Sounding() []int {
	var ret []int
	for i := range g {
		if _, ok := g[i].Pitch(); ok {
			ret = append(ret, i)
		}
	}
	return ret
}

// IsMonophonic reports if every step has at most one non-zero velocity.
func (g Grid) IsMonophonic() bool {
	for i := range g {
		count := 0
		for _, v := range g[i] {
			if v > 0 {
				count++
			}
		}
		if count > 1 {
			return false
		}
	}
	return true
}
