package theme

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"go-melody/roll"
)

//go:embed plasma.gpl
var plasmaGPL string

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	Note   rune // ● sounding step
	Hold   rune // ━ continuation of the same note
	Empty  rune // · silent cell
	Rest   rune // - rest step in the rest lane
	Cursor rune // ▶ selected track marker
	Solid  rune // ■ histogram bar
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Note:   '●',
			Hold:   '━',
			Empty:  '·',
			Rest:   '-',
			Cursor: '▶',
			Solid:  '■',
		},
	}
}

// Default returns the theme built from the embedded plasma palette
func Default() *Theme {
	p, err := ParseGPL(strings.NewReader(plasmaGPL))
	if err != nil {
		panic(fmt.Sprintf("embedded palette: %v", err))
	}
	return New(p)
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.2 // purple-magenta
	RoleAccent  = 0.5 // vivid magenta
	RoleWarning = 0.8 // orange
	RoleSuccess = 1.0 // bright yellow
)

func (t *Theme) Accent() lipgloss.Color  { return t.Color(RoleAccent) }
func (t *Theme) Muted() lipgloss.Color   { return t.Color(RoleMuted) }
func (t *Theme) Warning() lipgloss.Color { return t.Color(RoleWarning) }
func (t *Theme) Success() lipgloss.Color { return t.Color(RoleSuccess) }

// Color returns the lipgloss color for a normalized palette position
func (t *Theme) Color(norm float64) lipgloss.Color {
	c := t.Palette.Lookup(norm)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

// PitchColor spreads the palette over the pitch range, skipping the
// darkest quarter so low notes stay visible
func (t *Theme) PitchColor(pitch int) lipgloss.Color {
	return t.Color(0.25 + 0.75*float64(pitch)/float64(roll.Pitches-1))
}
