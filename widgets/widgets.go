package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderCell renders a single colored symbol
func RenderCell(color lipgloss.Color, symbol rune) string {
	return lipgloss.NewStyle().Foreground(color).Render(string(symbol))
}

// RenderLegendItem renders a single legend item: "● Name - description"
func RenderLegendItem(color lipgloss.Color, symbol rune, name, desc string) string {
	return fmt.Sprintf("  %s %s - %s", RenderCell(color, symbol), name, desc)
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}

// Bar is one labelled histogram row
type Bar struct {
	Label string
	Value int
}

// RenderHistogram draws horizontal bars scaled to width cells
func RenderHistogram(bars []Bar, width int, color lipgloss.Color, symbol rune) string {
	peak, labelWidth := 0, 0
	for _, b := range bars {
		peak = max(peak, b.Value)
		labelWidth = max(labelWidth, lipgloss.Width(b.Label))
	}
	if peak == 0 {
		peak = 1
	}

	style := lipgloss.NewStyle().Foreground(color)
	var lines []string
	for _, b := range bars {
		n := b.Value * width / peak
		if b.Value > 0 && n == 0 {
			n = 1
		}
		lines = append(lines, fmt.Sprintf("%-*s %s %d",
			labelWidth, b.Label, style.Render(strings.Repeat(string(symbol), n)), b.Value))
	}
	return strings.Join(lines, "\n")
}
