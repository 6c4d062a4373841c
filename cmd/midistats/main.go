package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"go-melody/dataset"
	"go-melody/family"
	"go-melody/midi"
	"go-melody/roll"
	"go-melody/theme"
	"go-melody/widgets"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		instruments string
		top         int
		width       int
		perFile     bool
	)

	cmd := &cobra.Command{
		Use:          "midistats DIR",
		Short:        "Histogram of the instruments used in a MIDI directory",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := dataset.ListMIDI(args[0])
			if err != nil {
				return err
			}
			table, err := family.Load(instruments)
			if err != nil {
				return err
			}

			s := newStats(table)
			for _, path := range paths {
				f, err := midi.ReadFile(path)
				if err != nil {
					s.failed++
					continue
				}
				f.RemoveInvalidNotes()
				s.add(f)
				if perFile {
					fmt.Fprintln(cmd.OutOrStdout(), fileLine(f))
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), s.render(theme.Default(), top, width))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&instruments, "instruments", "data/instruments.json", "instrument family reference file")
	f.IntVar(&top, "top", 20, "programs to list")
	f.IntVar(&width, "width", 40, "bar width")
	f.BoolVar(&perFile, "per-file", false, "print a line per file")
	return cmd
}

type stats struct {
	table      *family.Table
	files      int
	failed     int
	tracks     int
	drums      int
	monophonic int
	programs   map[uint8]int
	families   map[int]int
}

func newStats(table *family.Table) *stats {
	return &stats{
		table:    table,
		programs: make(map[uint8]int),
		families: make(map[int]int),
	}
}

func (s *stats) add(f *midi.File) {
	s.files++
	for _, t := range f.Tracks {
		s.tracks++
		if t.IsDrum {
			s.drums++
			continue
		}
		s.programs[t.Program]++
		s.families[s.table.Family(t.Program)]++
		if roll.IsMonophonic(t, roll.StrictThreshold) {
			s.monophonic++
		}
	}
}

func fileLine(f *midi.File) string {
	line := f.Path
	for _, t := range f.Tracks {
		if t.IsDrum {
			line += fmt.Sprintf("  [drums %d]", len(t.Notes))
			continue
		}
		line += fmt.Sprintf("  [%s %d]", midi.ProgramName(t.Program), len(t.Notes))
	}
	return line
}

// programBars returns the top programs by track count, ties by program number
func (s *stats) programBars(top int) []widgets.Bar {
	programs := make([]uint8, 0, len(s.programs))
	for p := range s.programs {
		programs = append(programs, p)
	}
	sort.Slice(programs, func(i, j int) bool {
		a, b := programs[i], programs[j]
		if s.programs[a] != s.programs[b] {
			return s.programs[a] > s.programs[b]
		}
		return a < b
	})
	if top > 0 && len(programs) > top {
		programs = programs[:top]
	}

	bars := make([]widgets.Bar, len(programs))
	for i, p := range programs {
		bars[i] = widgets.Bar{Label: fmt.Sprintf("%3d %s", p, midi.ProgramName(p)), Value: s.programs[p]}
	}
	return bars
}

func (s *stats) familyBars() []widgets.Bar {
	bars := make([]widgets.Bar, 0, s.table.Len())
	for id := 0; id < s.table.Len(); id++ {
		if n := s.families[id]; n > 0 {
			bars = append(bars, widgets.Bar{Label: s.table.Name(id), Value: n})
		}
	}
	return bars
}

func (s *stats) render(th *theme.Theme, top, width int) string {
	title := lipgloss.NewStyle().Foreground(th.Accent()).Bold(true)
	dim := lipgloss.NewStyle().Foreground(th.Muted())

	summary := fmt.Sprintf("%d files (%d unreadable), %d tracks, %d drum tracks, %d strictly monophonic",
		s.files, s.failed, s.tracks, s.drums, s.monophonic)

	return lipgloss.JoinVertical(lipgloss.Left,
		title.Render("Programs"),
		widgets.RenderHistogram(s.programBars(top), width, th.Accent(), th.Symbols.Solid),
		"",
		title.Render("Families"),
		widgets.RenderHistogram(s.familyBars(), width, th.Success(), th.Symbols.Solid),
		"",
		dim.Render(summary),
	)
}
