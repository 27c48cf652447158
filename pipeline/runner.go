// Package pipeline runs the randomizer over a directory of MIDI files: every
// file is decoded into a grid, its statistics are written next to it, the
// requested number of variations are generated from the statistics and
// written as new MIDI files, and the follower tables of all files are merged
// into a global table.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/sirupsen/logrus"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/codec"
	"github.com/bernardtaubert/midi-randomizer/config"
	"github.com/bernardtaubert/midi-randomizer/midifile"
	"github.com/bernardtaubert/midi-randomizer/model"
	"github.com/bernardtaubert/midi-randomizer/report"
	"github.com/bernardtaubert/midi-randomizer/store"
	"github.com/bernardtaubert/midi-randomizer/variation"
)

type (
	// Runner processes input files. Rand must be safe for concurrent use if
	// Config.Workers > 1; NewRand returns such a source. Report, if not nil,
	// receives a dump of every variation.
	Runner struct {
		Config config.Config
		Layout Layout
		Rand   randomizer.Rand
		Log    logrus.FieldLogger
		Report io.Writer

		aggregate model.Aggregate
		reportMu  sync.Mutex
	}

	// Result counts what happened to the input files.
	Result struct {
		Processed  int
		Skipped    int
		Failed     int
		Variations int
	}

	lockedRand struct {
		mu   sync.Mutex
		rand *rand.Rand
	}
)

// TrackName is the name of the note track of every written variation.
const TrackName = "Track1"

// NewRand returns a random source that is safe for concurrent use. Seed 0
// seeds it from the wall clock.
func NewRand(seed int64) randomizer.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{rand: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

func (r *Runner) log() logrus.FieldLogger {
	if r.Log == nil {
		return logrus.StandardLogger()
	}
	return r.Log
}

// Aggregate returns the follower table merged from all files processed so
// far.
func (r *Runner) Aggregate() model.Followers {
	return r.aggregate.Followers()
}

// Run processes the files with Config.Workers workers and finally writes the
// global follower table. A file that fails is logged and skipped; it does not
// stop the other files and does not contribute to the global table. The
// returned error is only about writing the global table.
func (r *Runner) Run(files []string) (Result, error) {
	var (
		res  Result
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)
	workers := max(r.Config.Workers, 1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				n, err := r.ProcessFile(path)
				log := r.log().WithField("file", path)
				mu.Lock()
				res.Variations += n
				switch {
				case err == nil:
					res.Processed++
				case ftag.Get(err) == randomizer.KindPrecondition:
					log.WithError(err).Warn("skipping file")
					res.Skipped++
				default:
					log.WithError(err).WithField("kind", ftag.Get(err)).Error("could not process file")
					res.Failed++
				}
				mu.Unlock()
			}
		}()
	}
	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()
	if r.aggregate.Files() == 0 {
		return res, nil
	}
	global := r.aggregate.Followers()
	if err := store.SaveFile(r.Layout.GlobalPitches(), func(w io.Writer) error { return store.WriteGlobalPitches(w, global) }); err != nil {
		return res, fmt.Errorf("could not save global pitch quantities: %w", err)
	}
	return res, nil
}

// ProcessFile decodes one file, saves its statistics and writes
// Config.Amount variations of it. It returns the number of variations
// written.
func (r *Runner) ProcessFile(path string) (int, error) {
	c := &r.Config
	log := r.log().WithField("file", path)
	paths, err := r.Layout.Paths(path)
	if err != nil {
		return 0, err
	}
	seq, err := midifile.ReadFile(path)
	if err != nil {
		return 0, err
	}
	grid, err := codec.Decode(seq, c.Quantization, codec.DefaultDecodeOffset)
	if err != nil {
		return 0, fault.Wrap(err, fmsg.With("decoding "+path))
	}
	followers, stepFollowers := model.BuildFollowers(grid)
	rhythm := model.BuildRhythm(grid)
	log.WithFields(logrus.Fields{"steps": len(grid), "notes": rhythm.NoteCount, "edges": followers.Len()}).Info("built statistics")
	if err := store.SaveFile(paths.Pitches, func(w io.Writer) error { return store.WritePitches(w, followers) }); err != nil {
		return 0, err
	}
	if err := store.SaveFile(paths.Rhythm, func(w io.Writer) error { return store.WriteRhythm(w, &rhythm) }); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(paths.Locks), os.ModePerm); err != nil {
		return 0, fmt.Errorf("could not create directory for locked steps: %w", err)
	}
	locks, err := r.locks(paths)
	if err != nil {
		return 0, err
	}
	params := c.Params()
	written := 0
	for i := 1; i <= c.Amount; i++ {
		// the statistics are read back so that edits to the files take effect
		loaded, err := store.LoadFile(paths.Pitches, store.ReadPitches)
		if err != nil {
			return written, err
		}
		perStep, err := store.LoadFile(paths.Rhythm, store.ReadRhythm)
		if err != nil {
			return written, err
		}
		m := variation.Models{Followers: loaded, StepFollowers: stepFollowers, Rhythm: rhythm.Copy()}
		m.Rhythm.MergePerStep(perStep)
		engine := variation.Engine{Rand: r.Rand, Locks: locks, Log: log.WithField("variation", i)}
		out, err := engine.Generate(grid, m, params)
		if err != nil {
			return written, fault.Wrap(err, fmsg.With(fmt.Sprintf("generating variation %d", i)))
		}
		track := codec.Encode(out, TrackName, c.Quantization, codec.DefaultEncodeOffset, c.TicksPerQuarter, c.Tempo)
		dst := paths.Variation(i)
		if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
			return written, fmt.Errorf("could not create output directory: %w", err)
		}
		if err := midifile.WriteFile(dst, track); err != nil {
			return written, err
		}
		written++
		r.dump(out, &m)
	}
	r.aggregate.Merge(followers)
	return written, nil
}

func (r *Runner) locks(paths Paths) (randomizer.LockedSteps, error) {
	if !r.Config.LockSteps {
		return nil, nil
	}
	locks, err := store.LoadFile(paths.Locks, store.ReadLocks)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return locks, err
}

func (r *Runner) dump(grid randomizer.Grid, m *variation.Models) {
	if r.Report == nil {
		return
	}
	r.reportMu.Lock()
	defer r.reportMu.Unlock()
	fmt.Fprintln(r.Report, report.Notes(grid))
	fmt.Fprintln(r.Report, report.Followers(&m.Followers, randomizer.A))
	fmt.Fprintln(r.Report, report.Rhythm(&m.Rhythm))
}
