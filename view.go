package main

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"go-melody/config"
	"go-melody/midi"
	"go-melody/roll"
	"go-melody/theme"
	"go-melody/tui"
)

func newViewCmd() *cobra.Command {
	var (
		fs      float64
		palette string
	)

	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Show the encoded piano rolls of a MIDI file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fs <= 0 {
				return config.Fail("fs must be positive")
			}
			f, err := midi.ReadFile(args[0])
			if err != nil {
				return config.Wrap(err, "could not read "+args[0])
			}
			f.RemoveInvalidNotes()

			th := theme.Default()
			if palette != "" {
				p, err := theme.LoadGPL(palette)
				if err != nil {
					return config.Wrap(err, "could not load palette "+palette)
				}
				th = theme.New(p)
			}

			m := tui.NewModel(filepath.Base(args[0]), tui.NewTrackViews(f, fs), th)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().Float64Var(&fs, "fs", roll.DefaultFS, "encoder steps per second")
	cmd.Flags().StringVar(&palette, "palette", "", "GIMP .gpl palette file")
	return cmd
}
