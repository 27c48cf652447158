// Package config holds the parameters of a randomizer run. They can be read
// from a .yml or .json file; anything not given keeps its default value.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/codec"
	"github.com/bernardtaubert/midi-randomizer/variation"
)

type Config struct {
	// Quantization defines a 1/2**Quantization note grid.
	Quantization int `yaml:"quantization" json:"quantization"`
	// Amount is the number of variations written per input file.
	Amount int `yaml:"amount" json:"amount"`
	// LockSteps enables reading the locked steps of each input file.
	LockSteps    bool                    `yaml:"lock-steps" json:"lock-steps"`
	RandomNotes  float64                 `yaml:"random-notes" json:"random-notes"`
	RandomRhythm int                     `yaml:"random-rhythm" json:"random-rhythm"`
	NoteMin      int                     `yaml:"note-min" json:"note-min"`
	NoteMax      int                     `yaml:"note-max" json:"note-max"`
	Transpose    variation.Transposition `yaml:"transpose" json:"transpose"`
	// TicksPerQuarter and Tempo (microseconds per quarter note) are used
	// when writing the variations.
	TicksPerQuarter int `yaml:"ticks-per-quarter" json:"ticks-per-quarter"`
	Tempo           int `yaml:"tempo" json:"tempo"`
	// Workers is the number of input files processed concurrently.
	Workers int `yaml:"workers" json:"workers"`
	// Seed seeds the random source; 0 seeds from the wall clock.
	Seed int64 `yaml:"seed" json:"seed"`
}

//go:embed default.yml
var defaultConfigYaml []byte

var ErrInvalid = errors.New("invalid configuration")

// Default returns the default configuration: one variation per file, no
// randomization, a 1/32 note grid.
func Default() Config {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(defaultConfigYaml))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		panic(fmt.Errorf("failed to unmarshal default config: %w", err))
	}
	return c
}

// Parse reads a configuration given as .json or .yml, on top of the
// defaults.
func Parse(b []byte) (Config, error) {
	c := Default()
	if errJSON := json.Unmarshal(b, &c); errJSON != nil {
		c = Default()
		if errYaml := yaml.Unmarshal(b, &c); errYaml != nil {
			return Config{}, fmt.Errorf("config could not be unmarshaled as a .json (%v) or .yml (%v)", errJSON, errYaml)
		}
	}
	return c, nil
}

// Load reads and validates the configuration file at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config %v: %w", path, err)
	}
	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("could not parse config %v: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %v: %w", path, err)
	}
	return c, nil
}

// Validate checks that all parameters are within their ranges.
func (c *Config) Validate() error {
	check := func(ok bool, format string, args ...any) error {
		if ok {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	return errors.Join(
		check(c.Quantization >= 0 && c.Quantization <= codec.MaxQuantization, "quantization %d is not between 0 and %d", c.Quantization, codec.MaxQuantization),
		check(c.Amount >= 0, "amount %d is negative", c.Amount),
		check(c.RandomNotes >= 0 && c.RandomNotes <= 3, "random notes %v is not between 0 and 3", c.RandomNotes),
		check(c.RandomRhythm >= 0 && c.RandomRhythm <= 2, "random rhythm %d is not 0, 1 or 2", c.RandomRhythm),
		check(c.NoteMin >= 0 && c.NoteMax <= randomizer.MaxNote && c.NoteMin <= c.NoteMax, "note range %d .. %d is not within 0 .. %d", c.NoteMin, c.NoteMax, randomizer.MaxNote),
		check(c.Transpose.Algorithm >= 0 && c.Transpose.Algorithm <= 4, "transpose algorithm %v is not between 0 and 4", c.Transpose.Algorithm),
		check(c.Transpose.Probability >= 0 && c.Transpose.Probability <= 1, "transpose probability %v is not between 0 and 1", c.Transpose.Probability),
		check(c.TicksPerQuarter > 0 && c.TicksPerQuarter <= 0x7FFF, "ticks per quarter %d is not between 1 and 32767", c.TicksPerQuarter),
		check(c.Tempo > 0, "tempo %d is not positive", c.Tempo),
		check(c.Workers >= 1, "workers %d is less than 1", c.Workers),
	)
}

// Params returns the parameters of a single variation.
func (c *Config) Params() variation.Params {
	return variation.Params{
		RandomNotes:  c.RandomNotes,
		Transpose:    c.Transpose,
		NoteMin:      c.NoteMin,
		NoteMax:      c.NoteMax,
		RandomRhythm: c.RandomRhythm,
	}
}
