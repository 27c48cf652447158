// Package midifile reads and writes Standard MIDI Files, translating between
// their tracks and the codec's Sequence and Track types.
package midifile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/codec"
)

var ErrTimeFormat = errors.New("only metric time formats (ticks per quarter note) are supported")

// Read parses a MIDI file. The time signatures are taken from the first track,
// which conventionally holds the meta data; the notes are taken from the first
// track that has any note-on events. If no track has notes, the returned
// Sequence has no events and decoding it fails.
func Read(r io.Reader) (codec.Sequence, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return codec.Sequence{}, fault.Wrap(err, fmsg.With("parsing MIDI file"), ftag.With(randomizer.KindPrecondition))
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return codec.Sequence{}, fault.Wrap(ErrTimeFormat, fmsg.With(fmt.Sprintf("parsing MIDI file (time format %v)", s.TimeFormat)), ftag.With(randomizer.KindPrecondition))
	}
	seq := codec.Sequence{TicksPerQuarter: int(ticks.Resolution())}
	if len(s.Tracks) > 0 {
		for _, ev := range s.Tracks[0] {
			var num, denom, clocksPerClick, demiSemiQuaverPerQuarter uint8
			if ev.Message.GetMetaTimeSig(&num, &denom, &clocksPerClick, &demiSemiQuaverPerQuarter) {
				seq.TimeSignatures = append(seq.TimeSignatures, codec.TimeSignature{Numerator: int(num), Denominator: int(denom)})
			}
		}
	}
	track := noteTrack(s)
	if track == nil {
		return seq, nil
	}
	var tick int64
	for _, ev := range track {
		tick += int64(ev.Delta)
		msg := midi.Message(ev.Message)
		var channel, key, velocity uint8
		switch {
		case msg.GetNoteStart(&channel, &key, &velocity):
			seq.Events = append(seq.Events, codec.Event{Tick: tick, Kind: codec.NoteOn, Channel: int(channel), Pitch: int(key), Velocity: int(velocity)})
		case msg.GetNoteEnd(&channel, &key):
			seq.Events = append(seq.Events, codec.Event{Tick: tick, Kind: codec.NoteOff, Channel: int(channel), Pitch: int(key)})
		}
	}
	seq.Length = tick
	return seq, nil
}

func noteTrack(s *smf.SMF) smf.Track {
	for _, t := range s.Tracks {
		for _, ev := range t {
			var channel, key, velocity uint8
			if midi.Message(ev.Message).GetNoteStart(&channel, &key, &velocity) {
				return t
			}
		}
	}
	return nil
}

// ReadFile reads and parses the MIDI file at path.
func ReadFile(path string) (codec.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return codec.Sequence{}, fmt.Errorf("could not open %v: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Write writes the track as a format 1 MIDI file with two tracks: a meta track
// with the track name, time signature and tempo, and the note track.
func Write(w io.Writer, t codec.Track) error {
	if t.TicksPerQuarter <= 0 || t.TicksPerQuarter > 0x7FFF {
		return fmt.Errorf("cannot write %d ticks per quarter note", t.TicksPerQuarter)
	}
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(uint16(t.TicksPerQuarter))
	tempo := t.Tempo
	if tempo <= 0 {
		tempo = codec.DefaultTempo
	}
	var meta smf.Track
	meta.Add(0, smf.MetaTrackSequenceName(t.Name))
	meta.Add(0, smf.MetaTimeSig(uint8(t.TimeSignature.Numerator), uint8(t.TimeSignature.Denominator), 24, 8))
	meta.Add(0, smf.MetaTempo(60000000/float64(tempo)))
	meta.Close(0)
	var notes smf.Track
	notes.Add(0, smf.MetaTrackSequenceName(t.Name))
	var last int64
	for _, e := range t.Events {
		if e.Delta < 0 || e.Pitch < 0 || e.Pitch > randomizer.MaxNote {
			return fmt.Errorf("invalid note event %+v", e)
		}
		channel, key := uint8(e.Channel&0x0F), uint8(e.Pitch)
		switch e.Kind {
		case codec.NoteOn:
			notes.Add(uint32(e.Delta), midi.NoteOn(channel, key, uint8(e.Velocity&0x7F)))
		case codec.NoteOff:
			notes.Add(uint32(e.Delta), midi.NoteOffVelocity(channel, key, uint8(e.Velocity&0x7F)))
		}
		last += e.Delta
	}
	end := t.Length - last
	if end < 0 {
		end = 0
	}
	notes.Close(uint32(end))
	if err := s.Add(meta); err != nil {
		return fmt.Errorf("could not add meta track: %w", err)
	}
	if err := s.Add(notes); err != nil {
		return fmt.Errorf("could not add note track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("could not write MIDI file: %w", err)
	}
	return nil
}

// WriteFile writes the track to path, creating or truncating the file.
func WriteFile(path string, t codec.Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create %v: %w", path, err)
	}
	if err := Write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
