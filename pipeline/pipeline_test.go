package pipeline_test

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/codec"
	"github.com/bernardtaubert/midi-randomizer/config"
	"github.com/bernardtaubert/midi-randomizer/midifile"
	"github.com/bernardtaubert/midi-randomizer/pipeline"
	"github.com/bernardtaubert/midi-randomizer/store"
	"github.com/bernardtaubert/midi-randomizer/variation"
)

func riff() randomizer.Grid {
	grid := randomizer.NewGrid(32)
	for step, pitch := range map[int]int{0: 72, 4: 76, 6: 74, 8: 72, 12: 79, 16: 77, 20: 76, 24: 74, 28: 72} {
		grid[step].Set(pitch)
	}
	return grid
}

func writeMidi(t *testing.T, path string, grid randomizer.Grid, sig codec.TimeSignature) {
	t.Helper()
	track := codec.Encode(grid, "riff", 5, codec.DefaultEncodeOffset, codec.DefaultTicksPerQuarter, codec.DefaultTempo)
	track.TimeSignature = sig
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		t.Fatalf("could not create test directory: %v", err)
	}
	if err := midifile.WriteFile(path, track); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func readGrid(t *testing.T, path string) randomizer.Grid {
	t.Helper()
	seq, err := midifile.ReadFile(path)
	if err != nil {
		t.Fatalf("could not read %v: %v", path, err)
	}
	grid, err := codec.Decode(seq, 5, codec.DefaultDecodeOffset)
	if err != nil {
		t.Fatalf("could not decode %v: %v", path, err)
	}
	return grid
}

func TestLayout(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "midi_in")
	writeMidi(t, filepath.Join(in, "riff.mid"), riff(), codec.FourFour)
	writeMidi(t, filepath.Join(in, "lead", "solo.mid"), riff(), codec.FourFour)
	writeMidi(t, filepath.Join(in, "archive", "old.mid"), riff(), codec.FourFour)
	writeMidi(t, filepath.Join(in, "midi_out", "riff1.mid"), riff(), codec.FourFour)
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("not midi"), 0644); err != nil {
		t.Fatalf("could not write test file: %v", err)
	}
	l := pipeline.NewLayout(in)
	if l.Root != dir {
		t.Fatalf("expected root %v, got %v", dir, l.Root)
	}
	files, err := l.Discover(in)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	sort.Strings(files)
	want := []string{filepath.Join(in, "lead", "solo.mid"), filepath.Join(in, "riff.mid")}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("got files %v, expected %v", files, want)
	}
	p, err := l.Paths(filepath.Join(in, "lead", "solo.mid"))
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if p.Pitches != filepath.Join(dir, "pitch_quantity", "lead", "solo.md") ||
		p.Rhythm != filepath.Join(dir, "rhythm_quantity", "lead", "solo.md") ||
		p.Locks != filepath.Join(dir, "lock_steps", "lead", "solo.md") ||
		p.Variation(2) != filepath.Join(dir, "midi_out", "lead", "solo2.mid") {
		t.Fatalf("unexpected paths %+v", p)
	}
	if _, err := l.Paths(filepath.Join(dir, "elsewhere.mid")); err == nil {
		t.Fatalf("expected an error for a file outside the input directory")
	}
	if single := pipeline.NewLayout(filepath.Join(in, "riff.mid")); single.Input != in {
		t.Fatalf("a single file should use its directory as input, got %v", single.Input)
	}
	sub := pipeline.NewLayout(filepath.Join(in, "lead"))
	if sub.Input != in || sub.Root != dir {
		t.Fatalf("a directory inside midi_in should use midi_in as input, got %+v", sub)
	}
	p, err = sub.Paths(filepath.Join(in, "lead", "solo.mid"))
	if err != nil {
		t.Fatalf("Paths failed: %v", err)
	}
	if p.Variation(1) != filepath.Join(dir, "midi_out", "lead", "solo1.mid") {
		t.Fatalf("unexpected paths %+v", p)
	}
	other := filepath.Join(dir, "songs")
	if l := pipeline.NewLayout(other); l.Input != other || l.Root != dir {
		t.Fatalf("a directory outside midi_in should be used as is, got %+v", l)
	}
}

func TestRunSubDirectory(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "midi_in")
	writeMidi(t, filepath.Join(in, "riff.mid"), riff(), codec.FourFour)
	writeMidi(t, filepath.Join(in, "lead", "solo.mid"), riff(), codec.FourFour)
	lead := filepath.Join(in, "lead")
	layout := pipeline.NewLayout(lead)
	files, err := layout.Discover(lead)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	runner := pipeline.Runner{Config: config.Default(), Layout: layout, Rand: pipeline.NewRand(1), Log: quietLogger()}
	if res, err := runner.Run(files); err != nil || res.Processed != 1 {
		t.Fatalf("Run failed: %+v %v", res, err)
	}
	for _, p := range []string{
		filepath.Join(dir, "midi_out", "lead", "solo1.mid"),
		filepath.Join(dir, "pitch_quantity", "lead", "solo.md"),
		filepath.Join(dir, "rhythm_quantity", "lead", "solo.md"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %v to exist: %v", p, err)
		}
	}
	// the outputs stay out of the input tree
	all, err := pipeline.NewLayout(in).Discover(in)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	sort.Strings(all)
	if want := []string{filepath.Join(lead, "solo.mid"), filepath.Join(in, "riff.mid")}; !reflect.DeepEqual(all, want) {
		t.Fatalf("got files %v, expected %v", all, want)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "midi_in")
	writeMidi(t, filepath.Join(in, "riff.mid"), riff(), codec.FourFour)
	writeMidi(t, filepath.Join(in, "waltz.mid"), riff(), codec.TimeSignature{Numerator: 3, Denominator: 4})
	layout := pipeline.NewLayout(in)
	locks := randomizer.NewLockedSteps(0, 4, 5)
	lockPath := filepath.Join(dir, "lock_steps", "riff.md")
	if err := store.SaveFile(lockPath, func(w io.Writer) error { return store.WriteLocks(w, locks) }); err != nil {
		t.Fatalf("could not write locks: %v", err)
	}
	c := config.Default()
	c.Amount = 3
	c.LockSteps = true
	c.RandomNotes = 1
	c.RandomRhythm = 2
	c.Transpose = variation.Transposition{Algorithm: 1.5, Probability: 0.5}
	c.Workers = 2
	runner := pipeline.Runner{Config: c, Layout: layout, Rand: pipeline.NewRand(7), Log: quietLogger()}
	files, err := layout.Discover(in)
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	res, err := runner.Run(files)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := (pipeline.Result{Processed: 1, Skipped: 1, Variations: 3}); res != want {
		t.Fatalf("got result %+v, expected %+v", res, want)
	}
	source := riff()
	for i := 1; i <= 3; i++ {
		grid := readGrid(t, filepath.Join(dir, "midi_out", fmt.Sprintf("riff%d.mid", i)))
		if len(grid) != len(source) {
			t.Fatalf("variation %v has %v steps, expected %v", i, len(grid), len(source))
		}
		if !grid.IsMonophonic() {
			t.Fatalf("variation %v is not monophonic", i)
		}
		for step := range locks {
			if grid[step] != source[step] {
				t.Fatalf("variation %v modified locked step %v", i, step)
			}
		}
	}
	for _, p := range []string{
		filepath.Join(dir, "pitch_quantity", "riff.md"),
		filepath.Join(dir, "rhythm_quantity", "riff.md"),
		filepath.Join(dir, "pitch_quantity", "global_pitch_quantity.md"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %v to exist: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "midi_out", "waltz1.mid")); !os.IsNotExist(err) {
		t.Fatalf("skipped file should not produce variations")
	}
	global, err := store.LoadFile(layout.GlobalPitches(), store.ReadPitches)
	if err != nil {
		t.Fatalf("could not read global pitch quantities: %v", err)
	}
	if !reflect.DeepEqual(global, runner.Aggregate()) {
		t.Fatalf("global pitch quantities %v differ from the aggregate %v", global, runner.Aggregate())
	}
}

func TestRunReport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "midi_in")
	writeMidi(t, filepath.Join(in, "riff.mid"), riff(), codec.FourFour)
	var out strings.Builder
	runner := pipeline.Runner{Config: config.Default(), Layout: pipeline.NewLayout(in), Rand: pipeline.NewRand(1), Log: quietLogger(), Report: &out}
	res, err := runner.Run([]string{filepath.Join(in, "riff.mid")})
	if err != nil || res.Processed != 1 {
		t.Fatalf("Run failed: %+v %v", res, err)
	}
	if !strings.Contains(out.String(), "Note = 72 C4") || !strings.Contains(out.String(), "Total number of notes = 9") {
		t.Fatalf("unexpected report\n%v", out.String())
	}
	// without randomization the variation equals the source
	if grid := readGrid(t, filepath.Join(dir, "midi_out", "riff1.mid")); !reflect.DeepEqual(grid, riff()) {
		t.Fatalf("variation without randomization differs from the source")
	}
}

func TestRunModelFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "midi_in")
	single := randomizer.NewGrid(32)
	single[3].Set(72)
	writeMidi(t, filepath.Join(in, "one.mid"), single, codec.FourFour)
	c := config.Default()
	c.RandomRhythm = 1
	runner := pipeline.Runner{Config: c, Layout: pipeline.NewLayout(in), Rand: pipeline.NewRand(1), Log: quietLogger()}
	res, err := runner.Run([]string{filepath.Join(in, "one.mid")})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := (pipeline.Result{Failed: 1}); res != want {
		t.Fatalf("got result %+v, expected %+v", res, want)
	}
	if _, err := os.Stat(filepath.Join(dir, "pitch_quantity", "global_pitch_quantity.md")); !os.IsNotExist(err) {
		t.Fatalf("a failed file should not produce a global table")
	}
}
