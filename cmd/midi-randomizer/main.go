package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/bernardtaubert/midi-randomizer/config"
	"github.com/bernardtaubert/midi-randomizer/pipeline"
	"github.com/bernardtaubert/midi-randomizer/version"
)

func main() {
	defaults := config.Default()
	configFile := flag.String("c", "", "Read the parameters from this .yml or .json file. Flags given explicitly override the values in the file.")
	quantization := flag.Int("quantization", defaults.Quantization, "Defines a 1/2**quantization note grid.")
	amount := flag.Int("amount", defaults.Amount, "Number of variations to create of every input file.")
	lockSteps := flag.Bool("lock-steps", defaults.LockSteps, "Keep the steps listed in lock_steps/<file>.md unchanged.")
	randomNotes := flag.Float64("random-notes", defaults.RandomNotes, "0 = no random, 1 random followers from the file, 2 blend with C major between C5 and C6, 3 random followers by quantity from pitch_quantity/<file>.md. Values in between blend.")
	randomRhythm := flag.Int("random-rhythm", defaults.RandomRhythm, "0 = no random, 1 random intervals from the file, 2 random intervals per step from rhythm_quantity/<file>.md.")
	noteMin := flag.Int("note-min", defaults.NoteMin, "Notes lower than this are transposed up by one octave.")
	noteMax := flag.Int("note-max", defaults.NoteMax, "Notes higher than this are transposed down by one octave.")
	transposeAlgorithm := flag.Float64("transpose-algorithm", defaults.Transpose.Algorithm, "0 = no transpose, 1 -1 octave when followed by same, 2 random +1 octave, 3 random -1 octave, 4 random +-1 octave.")
	transposeProbability := flag.Float64("transpose-probability", defaults.Transpose.Probability, "Probability of transposing a note, between 0 and 1.")
	transposeSame := flag.Bool("transpose-same", defaults.Transpose.Same, "Always transpose notes that are followed by the same note.")
	workers := flag.Int("j", defaults.Workers, "Number of files processed in parallel.")
	seed := flag.Int64("seed", defaults.Seed, "Seed of the random generator. 0 seeds from the clock.")
	printReport := flag.Bool("p", false, "Print the notes and statistics of every variation.")
	verbose := flag.Bool("verbose", false, "Log debug information.")
	help := flag.Bool("h", false, "Show help.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	cfg := defaults
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "quantization":
			cfg.Quantization = *quantization
		case "amount":
			cfg.Amount = *amount
		case "lock-steps":
			cfg.LockSteps = *lockSteps
		case "random-notes":
			cfg.RandomNotes = *randomNotes
		case "random-rhythm":
			cfg.RandomRhythm = *randomRhythm
		case "note-min":
			cfg.NoteMin = *noteMin
		case "note-max":
			cfg.NoteMax = *noteMax
		case "transpose-algorithm":
			cfg.Transpose.Algorithm = *transposeAlgorithm
		case "transpose-probability":
			cfg.Transpose.Probability = *transposeProbability
		case "transpose-same":
			cfg.Transpose.Same = *transposeSame
		case "j":
			cfg.Workers = *workers
		case "seed":
			cfg.Seed = *seed
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	rand := pipeline.NewRand(cfg.Seed)
	retval := 0
	for _, param := range flag.Args() {
		layout := pipeline.NewLayout(param)
		files, err := layout.Discover(param)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not find input files in %v: %v\n", param, err)
			retval = 1
			continue
		}
		runner := pipeline.Runner{Config: cfg, Layout: layout, Rand: rand, Log: log}
		if *printReport {
			runner.Report = os.Stdout
		}
		res, err := runner.Run(files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			retval = 1
		}
		if res.Failed > 0 {
			retval = 1
		}
		log.WithFields(logrus.Fields{
			"path":       param,
			"processed":  res.Processed,
			"skipped":    res.Skipped,
			"failed":     res.Failed,
			"variations": res.Variations,
		}).Info("done")
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "MIDI randomizer. Input quantized, monophonic 8 bar 4/4 .mid files, outputs their statistics and randomized variations.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
