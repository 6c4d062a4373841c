package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"go-melody/midi"
	"go-melody/roll"
	"go-melody/theme"
	"go-melody/widgets"
)

const (
	defaultRows  = 24 // visible pitch rows
	defaultWidth = 64 // visible steps
	labelWidth   = 5
)

// TrackView is one encoded track shown by the viewer
type TrackView struct {
	Name    string
	Program uint8
	Roll    roll.Roll
}

// NewTrackViews encodes the melodic tracks of a file at fs
func NewTrackViews(f *midi.File, fs float64) []TrackView {
	var out []TrackView
	for _, t := range f.Melodic() {
		r := roll.Encode(t, fs)
		if r.Len() == 0 {
			continue
		}
		name := t.Name
		if name == "" {
			name = midi.ProgramName(t.Program)
		}
		out = append(out, TrackView{Name: name, Program: t.Program, Roll: r})
	}
	return out
}

type Model struct {
	Title    string
	Tracks   []TrackView
	Theme    *theme.Theme
	track    int
	offset   int // first visible step
	low      int // lowest visible pitch
	rows     int
	width    int
	showHelp bool
	quitting bool
}

func NewModel(title string, tracks []TrackView, th *theme.Theme) Model {
	m := Model{
		Title:  title,
		Tracks: tracks,
		Theme:  th,
		rows:   defaultRows,
		width:  defaultWidth,
	}
	m.centerPitch()
	return m
}

// centerPitch scrolls the pitch axis to the middle of the current track's range
func (m *Model) centerPitch() {
	if len(m.Tracks) == 0 {
		return
	}
	lo, hi := pitchRange(m.Tracks[m.track].Roll)
	if lo < 0 {
		m.low = 60 - m.rows/2
	} else {
		m.low = (lo+hi)/2 - m.rows/2
	}
	m.clamp()
}

func (m *Model) clamp() {
	m.low = max(0, min(m.low, roll.Pitches-m.rows))
	steps := 0
	if len(m.Tracks) > 0 {
		steps = m.Tracks[m.track].Roll.Len()
	}
	m.offset = max(0, min(m.offset, steps-m.width))
}

// pitchRange returns the lowest and highest sounding pitch, or -1, -1
func pitchRange(r roll.Roll) (int, int) {
	lo, hi := -1, -1
	for i := range r {
		p := r.Pitch(i)
		if p < 0 {
			continue
		}
		if lo < 0 || p < lo {
			lo = p
		}
		hi = max(hi, p)
	}
	return lo, hi
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "tab", "n":
			if len(m.Tracks) > 0 {
				m.track = (m.track + 1) % len(m.Tracks)
				m.offset = 0
				m.centerPitch()
			}

		case "shift+tab", "N":
			if len(m.Tracks) > 0 {
				m.track = (m.track + len(m.Tracks) - 1) % len(m.Tracks)
				m.offset = 0
				m.centerPitch()
			}

		case "l", "right":
			m.offset += m.width / 4
		case "h", "left":
			m.offset -= m.width / 4
		case "k", "up":
			m.low++
		case "j", "down":
			m.low--
		case "g", "home":
			m.offset = 0
		case "G", "end":
			if len(m.Tracks) > 0 {
				m.offset = m.Tracks[m.track].Roll.Len()
			}

		case "?":
			m.showHelp = !m.showHelp
		}
		m.clamp()

	case tea.WindowSizeMsg:
		m.width = max(8, msg.Width-labelWidth-2)
		m.rows = max(4, min(roll.Pitches, msg.Height-8))
		m.clamp()
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	if len(m.Tracks) == 0 {
		return headerStyle.Render(m.Title) + "\n\n" + dimStyle.Render("no melodic tracks  q:quit")
	}

	tv := m.Tracks[m.track]
	header := headerStyle.Render(fmt.Sprintf("%s  %c %d/%d %s (%s)  steps %d-%d of %d",
		m.Title, m.Theme.Symbols.Cursor, m.track+1, len(m.Tracks), tv.Name,
		midi.ProgramName(tv.Program), m.offset, min(m.offset+m.width, tv.Roll.Len()), tv.Roll.Len()))

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(m.renderGrid(tv.Roll))
	out.WriteString("\n\n")

	if m.showHelp {
		out.WriteString(m.legend())
		out.WriteString("\n\n")
		out.WriteString(dimStyle.Render(widgets.RenderKeyHelp(helpSections)))
	} else {
		out.WriteString(dimStyle.Render("tab:track  h/l:scroll  j/k:pitch  ?:help  q:quit"))
	}
	return out.String()
}

// legend explains the grid symbols, colored the way the grid draws them
func (m Model) legend() string {
	sym := m.Theme.Symbols
	note := m.Theme.PitchColor(60)
	return strings.Join([]string{
		widgets.RenderLegendItem(note, sym.Note, "Note", "step where a pitch starts"),
		widgets.RenderLegendItem(note, sym.Hold, "Hold", "same pitch as the step before"),
		widgets.RenderLegendItem(m.Theme.Warning(), sym.Rest, "Rest", "silent or polyphonic step"),
	}, "\n")
}

var helpSections = []widgets.KeySection{
	{Title: "Tracks", Keys: []widgets.KeyBinding{
		{Key: "tab / n", Desc: "next track"},
		{Key: "S-tab / N", Desc: "previous track"},
	}},
	{Title: "Scroll", Keys: []widgets.KeyBinding{
		{Key: "h / l", Desc: "back / forward a quarter screen"},
		{Key: "j / k", Desc: "pitch down / up"},
		{Key: "g / G", Desc: "start / end"},
	}},
	{Keys: []widgets.KeyBinding{
		{Key: "q", Desc: "quit"},
	}},
}

// renderGrid draws the visible pitches, highest on top, and a rest lane below
func (m Model) renderGrid(r roll.Roll) string {
	sym := m.Theme.Symbols
	dim := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	end := min(m.offset+m.width, r.Len())

	var lines []string
	for p := m.low + m.rows - 1; p >= m.low; p-- {
		var line strings.Builder
		line.WriteString(dim.Render(fmt.Sprintf("%-*s", labelWidth, noteName(p))))
		for s := m.offset; s < end; s++ {
			switch {
			case r.Pitch(s) != p:
				line.WriteString(dim.Render(string(sym.Empty)))
			case s > 0 && r.Pitch(s-1) == p:
				line.WriteString(widgets.RenderCell(m.Theme.PitchColor(p), sym.Hold))
			default:
				line.WriteString(widgets.RenderCell(m.Theme.PitchColor(p), sym.Note))
			}
		}
		lines = append(lines, line.String())
	}

	var rest strings.Builder
	rest.WriteString(dim.Render(fmt.Sprintf("%-*s", labelWidth, "rest")))
	for s := m.offset; s < end; s++ {
		if r.IsRest(s) {
			rest.WriteString(widgets.RenderCell(m.Theme.Warning(), sym.Rest))
		} else {
			rest.WriteString(" ")
		}
	}
	lines = append(lines, rest.String())
	return strings.Join(lines, "\n")
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// noteName returns scientific pitch notation, middle C (60) is C4
func noteName(p int) string {
	return fmt.Sprintf("%s%d", noteNames[p%12], p/12-1)
}
