package report_test

import (
	"strings"
	"testing"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/model"
	"github.com/bernardtaubert/midi-randomizer/report"
)

func grid() randomizer.Grid {
	g := randomizer.NewGrid(8)
	g[0].Set(81)
	g[4].Set(84)
	return g
}

func TestNotes(t *testing.T) {
	text := report.Notes(grid())
	for _, s := range []string{"Note Array", "Step = 0", "Note = 81 A4", "Step = 4", "Note = 84 C5", "Velocity: 100"} {
		if !strings.Contains(text, s) {
			t.Errorf("%q not found in\n%v", s, text)
		}
	}
	if strings.Contains(text, "Step = 1") {
		t.Errorf("silent steps should not be listed:\n%v", text)
	}
}

func TestFollowers(t *testing.T) {
	f, _ := model.BuildFollowers(grid())
	text := report.Followers(&f, randomizer.A)
	if !strings.Contains(text, "A Followers") || !strings.Contains(text, "A is followed by C5 with quantity 1") {
		t.Fatalf("unexpected report\n%v", text)
	}
}

func TestRhythm(t *testing.T) {
	r := model.BuildRhythm(grid())
	text := report.Rhythm(&r)
	for _, s := range []string{"Rhythm Information", "Total number of notes = 2", "Number of 8th notes = 1", "Number of long notes = 0"} {
		if !strings.Contains(text, s) {
			t.Errorf("%q not found in\n%v", s, text)
		}
	}
}
