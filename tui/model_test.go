package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"go-melody/midi"
	"go-melody/theme"
)

func testFile() *midi.File {
	lead := &midi.Track{Name: "lead", Program: 73, Notes: []midi.Note{
		{Pitch: 60, Start: 0, End: 0.5, Velocity: 90},
		{Pitch: 64, Start: 1, End: 1.25, Velocity: 90},
	}}
	bass := &midi.Track{Program: 33, Notes: []midi.Note{
		{Pitch: 36, Start: 0, End: 1, Velocity: 90},
	}}
	drums := &midi.Track{IsDrum: true, Channel: midi.DrumChannel, Notes: []midi.Note{
		{Pitch: 36, Start: 0, End: 0.25, Velocity: 90},
	}}
	return &midi.File{Tracks: []*midi.Track{lead, bass, drums}}
}

func TestNewTrackViews(t *testing.T) {
	views := NewTrackViews(testFile(), 4)
	if len(views) != 2 {
		t.Fatalf("expected 2 melodic views, got %d", len(views))
	}
	if views[0].Name != "lead" || views[0].Roll.Len() != 5 {
		t.Fatalf("view 0 = %q with %d steps", views[0].Name, views[0].Roll.Len())
	}
	if views[1].Name != midi.ProgramName(33) {
		t.Fatalf("unnamed track should fall back to its program name, got %q", views[1].Name)
	}
}

func TestRenderGrid(t *testing.T) {
	m := NewModel("test", NewTrackViews(testFile(), 4), theme.Default())
	grid := m.renderGrid(m.Tracks[0].Roll)
	lines := strings.Split(grid, "\n")
	if len(lines) != defaultRows+1 {
		t.Fatalf("expected %d lines, got %d", defaultRows+1, len(lines))
	}

	var c4, e4 string
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "C4 "):
			c4 = l
		case strings.HasPrefix(l, "E4 "):
			e4 = l
		}
	}
	if !strings.Contains(c4, "●━···") {
		t.Fatalf("C4 lane = %q", c4)
	}
	if !strings.Contains(e4, "····●") {
		t.Fatalf("E4 lane = %q", e4)
	}
	if rest := lines[len(lines)-1]; !strings.Contains(rest, "--") {
		t.Fatalf("rest lane = %q", rest)
	}
}

func TestUpdateCyclesTracks(t *testing.T) {
	var m tea.Model = NewModel("test", NewTrackViews(testFile(), 4), theme.Default())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.(Model).track; got != 1 {
		t.Fatalf("track = %d after tab, want 1", got)
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if got := m.(Model).track; got != 0 {
		t.Fatalf("track = %d after wrapping, want 0", got)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatalf("q should quit")
	}
}

func TestNoteName(t *testing.T) {
	tests := map[int]string{60: "C4", 69: "A4", 0: "C-1", 127: "G9"}
	for p, want := range tests {
		if got := noteName(p); got != want {
			t.Fatalf("noteName(%d) = %q, want %q", p, got, want)
		}
	}
}

func TestHelpShowsLegend(t *testing.T) {
	var m tea.Model = NewModel("test", NewTrackViews(testFile(), 4), theme.Default())
	if strings.Contains(m.View(), "Hold") {
		t.Fatalf("legend shown before ? was pressed")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	view := m.View()
	for _, want := range []string{"Note", "Hold", "Rest", "next track"} {
		if !strings.Contains(view, want) {
			t.Fatalf("help view is missing %q", want)
		}
	}
}
