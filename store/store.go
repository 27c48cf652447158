// Package store reads and writes the statistics of a melody as the small
// line-oriented text files a user can inspect and edit between runs: the pitch
// follower quantities, the rhythm quantities and the locked steps.
//
// A record line has the form
//
//	<a> > <b> = <c> // comment
//
// Blank lines and lines starting with # are skipped, and everything after //
// is discarded.
package store

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/codec"
	"github.com/bernardtaubert/midi-randomizer/model"
)

type (
	edge struct {
		Raw       int
		Pitch     int
		Quantity  int
		RawName   string
		PitchName string
	}

	intervalCount struct {
		Name  string
		Count int
	}

	stepInterval struct {
		Step     int
		Interval int
		Name     string
	}
)

// StepBasedMarker is the text that starts the per-step section of a rhythm
// file. Everything before the line containing it is a summary for humans and
// is ignored when reading.
const StepBasedMarker = "step-based"

var (
	ErrFormat = errors.New("malformed record")
	ErrRange  = errors.New("value out of range")
)

//go:embed templates/*
var templateFS embed.FS

var templates = template.Must(template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*"))

func formatError(err error, line int, text string) error {
	return fault.Wrap(err, fmsg.With(fmt.Sprintf("line %d: %q", line, text)), ftag.With(randomizer.KindFormat))
}

func edges(f *model.Followers) []edge {
	var ret []edge
	for raw, list := range f {
		for _, e := range list {
			ret = append(ret, edge{
				Raw:       raw,
				Pitch:     e.Pitch,
				Quantity:  e.Quantity,
				RawName:   randomizer.RawPitch(raw).String(),
				PitchName: randomizer.PitchName(e.Pitch),
			})
		}
	}
	return ret
}

// WritePitches writes the follower table of a single file.
func WritePitches(w io.Writer, f model.Followers) error {
	return templates.ExecuteTemplate(w, "pitches.md", struct {
		Kind  string
		Edges []edge
	}{"desired", edges(&f)})
}

// WriteGlobalPitches writes the follower table aggregated over many files.
func WriteGlobalPitches(w io.Writer, f model.Followers) error {
	return templates.ExecuteTemplate(w, "pitches.md", struct {
		Kind  string
		Edges []edge
	}{"global", edges(&f)})
}

// WriteRhythm writes a summary of the global interval histogram, followed by
// the step-based section: one line per step with the most frequent interval
// observed at that step, or 0 if there is none.
func WriteRhythm(w io.Writer, r *model.Rhythm) error {
	var summary []intervalCount
	for _, c := range r.Summary() {
		summary = append(summary, intervalCount{Name: randomizer.IntervalName(c.Interval), Count: c.Count})
	}
	steps := make([]stepInterval, len(r.PerStep))
	for i := range steps {
		m := r.MostFrequent(i)
		steps[i] = stepInterval{Step: i, Interval: m, Name: randomizer.IntervalName(m)}
	}
	return templates.ExecuteTemplate(w, "rhythm.md", struct {
		NoteCount int
		Summary   []intervalCount
		Steps     []stepInterval
	}{r.NoteCount, summary, steps})
}

// WriteLocks writes the locked steps in ascending order.
func WriteLocks(w io.Writer, l randomizer.LockedSteps) error {
	return templates.ExecuteTemplate(w, "locks.md", l.Sorted())
}

// record parses "a > b = c // comment".
func record(text string) (a, b, c int, err error) {
	if i := strings.Index(text, "//"); i >= 0 {
		text = text[:i]
	}
	left, rest, ok := strings.Cut(text, ">")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: missing '>'", ErrFormat)
	}
	middle, right, ok := strings.Cut(rest, "=")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: missing '='", ErrFormat)
	}
	var vals [3]int
	for i, s := range []string{left, middle, right} {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}

// skip reports if a line carries no record.
func skip(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || strings.HasPrefix(t, "#")
}

// ReadPitches parses a follower table written by WritePitches or
// WriteGlobalPitches. Records with the same class and pitch are summed.
func ReadPitches(r io.Reader) (model.Followers, error) {
	var f model.Followers
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if skip(text) {
			continue
		}
		raw, pitch, quantity, err := record(text)
		if err != nil {
			return model.Followers{}, formatError(err, line, text)
		}
		if raw < 0 || raw >= randomizer.NumRawPitches || pitch < 0 || pitch > randomizer.MaxNote || quantity < 0 {
			return model.Followers{}, formatError(ErrRange, line, text)
		}
		f.Add(randomizer.RawPitch(raw), pitch, quantity)
	}
	if err := scanner.Err(); err != nil {
		return model.Followers{}, fmt.Errorf("could not read pitch quantities: %w", err)
	}
	return f, nil
}

// ReadRhythm parses the step-based section of a rhythm file written by
// WriteRhythm. The result is indexed by step. A record with interval 0 is kept
// as is: it marks a step without a statistic. Steps must be below
// codec.MaxSteps and intervals at most codec.MaxSteps.
func ReadRhythm(r io.Reader) ([]model.Histogram, error) {
	var ret []model.Histogram
	started := false
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if strings.Contains(text, StepBasedMarker) {
			started = true
			continue
		}
		if !started || skip(text) {
			continue
		}
		step, interval, quantity, err := record(text)
		if err != nil {
			return nil, formatError(err, line, text)
		}
		if step < 0 || step >= codec.MaxSteps || interval < 0 || interval > codec.MaxSteps || quantity < 0 {
			return nil, formatError(ErrRange, line, text)
		}
		if step >= len(ret) {
			grown := make([]model.Histogram, step+1)
			copy(grown, ret)
			ret = grown
		}
		ret[step].Add(interval, quantity)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read rhythm quantities: %w", err)
	}
	return ret, nil
}

// ReadLocks parses a list of locked steps, one integer per line.
func ReadLocks(r io.Reader) (randomizer.LockedSteps, error) {
	ret := randomizer.LockedSteps{}
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if skip(text) {
			continue
		}
		step, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			return nil, formatError(fmt.Errorf("%w: %v", ErrFormat, err), line, text)
		}
		if step < 0 {
			return nil, formatError(ErrRange, line, text)
		}
		ret.Add(step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read locked steps: %w", err)
	}
	return ret, nil
}

// SaveFile renders into a buffer with write and then writes the buffer to
// path, creating the parent directories if needed. Nothing is written if
// rendering fails.
func SaveFile(path string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("could not render %v: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create directory %v: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("could not write %v: %w", path, err)
	}
	return nil
}

// LoadFile opens path and parses it with read.
func LoadFile[T any](path string, read func(r io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("could not open %v: %w", path, err)
	}
	defer f.Close()
	ret, err := read(f)
	if err != nil {
		return ret, fault.Wrap(err, fmsg.With("loading "+path))
	}
	return ret, nil
}
