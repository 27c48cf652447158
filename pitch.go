package randomizer

import "strconv"

// RawPitch is a pitch class, i.e. a MIDI note number modulo 12.
type RawPitch int

// NumRawPitches is the number of pitch classes.
const NumRawPitches = 12

const (
	C RawPitch = iota
	Cis
	D
	Dis
	E
	F
	Fis
	G
	Gis
	A
	Ais
	B
)

var rawPitchNames = [NumRawPitches]string{
	"C",
	"Cis",
	"D",
	"Dis",
	"E",
	"F",
	"Fis",
	"G",
	"Gis",
	"A",
	"Ais",
	"B",
}

// RawPitchOf returns the pitch class of a MIDI note number.
func RawPitchOf(pitch int) RawPitch {
	return RawPitch(((pitch % NumRawPitches) + NumRawPitches) % NumRawPitches)
}

func (r RawPitch) String() string {
	if r < 0 || r >= NumRawPitches {
		return "RawPitch(" + strconv.Itoa(int(r)) + ")"
	}
	return rawPitchNames[r]
}

// PitchName returns the name of a MIDI note number; octaves are counted so that
// note 0 is C_minus2, note 24 is C0, note 72 is C4 and note 127 is G8.
func PitchName(pitch int) string {
	if pitch < 0 || pitch > MaxNote {
		return strconv.Itoa(pitch)
	}
	octave := pitch/NumRawPitches - 2
	name := rawPitchNames[pitch%NumRawPitches]
	if octave < 0 {
		return name + "_minus" + strconv.Itoa(-octave)
	}
	return name + strconv.Itoa(octave)
}

// IntervalName returns the conventional name of an interval, given in 32th
// notes: 4 is an "8th note", 16 a "half note" etc. Intervals without a
// conventional name are given as multiples of 32th notes, e.g. "3x32th note".
// Interval 0 has no name.
func IntervalName(interval int) string {
	switch interval {
	case 0:
		return ""
	case 1:
		return "32th note"
	case 2:
		return "16th note"
	case 4:
		return "8th note"
	case 8:
		return "4th note"
	case 16:
		return "half note"
	case 32:
		return "whole note"
	case 64:
		return "double note"
	case 128:
		return "long note"
	}
	return strconv.Itoa(interval) + "x32th note"
}

// IsNamedInterval reports if the interval has a conventional note value name.
func IsNamedInterval(interval int) bool {
	switch interval {
	case 1, 2, 4, 8, 16, 32, 64, 128:
		return true
	}
	return false
}
