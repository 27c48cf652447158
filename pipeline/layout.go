package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Output directories, created below Layout.Root. Each mirrors the
// sub-directory structure of the input directory.
const (
	PitchQuantityDir  = "pitch_quantity"
	RhythmQuantityDir = "rhythm_quantity"
	LockStepsDir      = "lock_steps"
	MidiOutDir        = "midi_out"
	GlobalPitchFile   = "global_pitch_quantity.md"
	// MidiInDir is the conventional name of the input directory
	MidiInDir = "midi_in"
	// directories with this in their name are not searched for input
	archive = "archive"
)

type (
	// Layout tells where the inputs are searched and where the outputs go.
	Layout struct {
		Input string
		Root  string
	}

	// Paths are the files belonging to one input file.
	Paths struct {
		Source  string
		Pitches string
		Rhythm  string
		Locks   string
		out     string
		base    string
	}
)

// NewLayout returns a Layout that searches input and places the output
// directories next to it: for midi_in/ the pitch quantities go to
// pitch_quantity/ and the variations to midi_out/. If input is a single file,
// its directory is used. If input is inside a midi_in directory, the outputs
// go next to that midi_in and mirror the path of input below it.
func NewLayout(input string) Layout {
	input = filepath.Clean(input)
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		input = filepath.Dir(input)
	}
	for dir := input; ; dir = filepath.Dir(dir) {
		if filepath.Base(dir) == MidiInDir {
			input = dir
			break
		}
		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}
	return Layout{Input: input, Root: filepath.Dir(input)}
}

// Discover returns the .mid files below the input directory, skipping archive
// and midi_out directories. If path names a file, only that file is returned.
func (l Layout) Discover(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not stat %v: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var ret []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && (strings.Contains(d.Name(), archive) || d.Name() == MidiOutDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) == ".mid" {
			ret = append(ret, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not walk %v: %w", path, err)
	}
	return ret, nil
}

// Paths returns the output files of the input file source.
func (l Layout) Paths(source string) (Paths, error) {
	rel, err := filepath.Rel(l.Input, source)
	if err != nil || strings.HasPrefix(rel, "..") {
		return Paths{}, fmt.Errorf("%v is not inside the input directory %v", source, l.Input)
	}
	dir, name := filepath.Split(rel)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	md := base + ".md"
	return Paths{
		Source:  source,
		Pitches: filepath.Join(l.Root, PitchQuantityDir, dir, md),
		Rhythm:  filepath.Join(l.Root, RhythmQuantityDir, dir, md),
		Locks:   filepath.Join(l.Root, LockStepsDir, dir, md),
		out:     filepath.Join(l.Root, MidiOutDir, dir),
		base:    base,
	}, nil
}

// GlobalPitches is the file for the follower table aggregated over all inputs.
func (l Layout) GlobalPitches() string {
	return filepath.Join(l.Root, PitchQuantityDir, GlobalPitchFile)
}

// Variation returns the path of the n:th variation, counting from 1.
func (p Paths) Variation(n int) string {
	return filepath.Join(p.out, p.base+strconv.Itoa(n)+".mid")
}
