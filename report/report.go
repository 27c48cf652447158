// Package report renders grids and their statistics as text for the terminal,
// for inspecting what the randomizer did.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	randomizer "github.com/bernardtaubert/midi-randomizer"
	"github.com/bernardtaubert/midi-randomizer/model"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffd54f"))
	labelStyle   = lipgloss.NewStyle().Width(14).PaddingLeft(2)
	noteStyle    = lipgloss.NewStyle().Width(24)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	caser        = cases.Title(language.English)
)

func heading(s string) string {
	return headingStyle.Render(caser.String(s))
}

// Notes lists the sounding steps of a grid with pitch and velocity.
func Notes(grid randomizer.Grid) string {
	lines := []string{heading("note array")}
	for step := range grid {
		for pitch, v := range grid[step] {
			if v == 0 {
				continue
			}
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				labelStyle.Render(fmt.Sprintf("Step = %d", step)),
				noteStyle.Render(fmt.Sprintf("Note = %d %s", pitch, randomizer.PitchName(pitch))),
				dimStyle.Render(fmt.Sprintf("Velocity: %d", v)),
			))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Followers lists the followers of one pitch class with their quantities.
func Followers(f *model.Followers, raw randomizer.RawPitch) string {
	lines := []string{heading(raw.String() + " followers")}
	if raw < 0 || raw >= randomizer.NumRawPitches {
		return lines[0] + "\n"
	}
	for _, e := range f[raw] {
		lines = append(lines, fmt.Sprintf("  %v is followed by %s with quantity %d", raw, randomizer.PitchName(e.Pitch), e.Quantity))
	}
	return strings.Join(lines, "\n") + "\n"
}

// Rhythm summarizes the global interval histogram, longest intervals first.
// Named note values are always listed, other intervals only if they occur.
func Rhythm(r *model.Rhythm) string {
	lines := []string{
		heading("rhythm information"),
		fmt.Sprintf("  Total number of notes = %d", r.NoteCount),
	}
	for _, c := range r.Summary() {
		line := fmt.Sprintf("  Number of %ss = %d", randomizer.IntervalName(c.Interval), c.Count)
		if c.Count == 0 {
			line = dimStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n") + "\n"
}
