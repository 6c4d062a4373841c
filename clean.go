package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"go-melody/config"
	"go-melody/dataset"
	"go-melody/midi"
)

// cleanTempo is the tempo split instrument files are written at
const cleanTempo = 80.0

func newCleanCmd() *cobra.Command {
	var (
		dataDir  string
		outDir   string
		maxPause float64
		minNotes int
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Split every long instrument part into its own file and squeeze out long pauses",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)

			if maxPause < 0 {
				return config.Fail("max pause must not be negative")
			}
			paths, err := dataset.ListMIDI(dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}

			progress := mpb.NewWithContext(ctx, mpb.WithWidth(64))
			bar := progress.AddBar(int64(len(paths)),
				mpb.PrependDecorators(
					decor.Name("Cleaning: "),
					decor.CountersNoUnit("%d / %d"),
				),
				mpb.AppendDecorators(decor.Percentage()),
			)

			written := 0
			for _, path := range paths {
				if err := ctx.Err(); err != nil {
					bar.Abort(false)
					progress.Wait()
					return err
				}
				n, err := cleanFile(path, outDir, maxPause, minNotes)
				if err != nil {
					logger.Warn("skipping file", "path", path, "err", err)
				}
				written += n
				bar.Increment()
			}
			progress.Wait()

			logger.Info("cleaned dataset", "files", len(paths), "written", written, "out", outDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data-dir", "midi-data", "directory of .mid files")
	f.StringVar(&outDir, "out-dir", "midi-clean", "directory for the split instrument files")
	f.Float64Var(&maxPause, "max-pause", 1, "longest silence kept, in seconds")
	f.IntVar(&minNotes, "min-notes", 1000, "instruments need more notes than this")
	return cmd
}

// cleanFile writes one file per melodic instrument of path with more than
// minNotes notes. Files whose first part is a drum part are skipped.
func cleanFile(path, outDir string, maxPause float64, minNotes int) (int, error) {
	f, err := midi.ReadFile(path)
	if err != nil {
		return 0, err
	}
	f.RemoveInvalidNotes()

	if len(f.Tracks) == 0 || f.Tracks[0].IsDrum {
		return 0, nil
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	written := 0
	for i, t := range f.Tracks {
		if t.IsDrum || len(t.Notes) <= minNotes {
			continue
		}
		clean := t.CompressPauses(maxPause)
		name := fmt.Sprintf("%s-ins%d-notes%d-ori_len%d-new_len%d.mid",
			base, i, len(clean.Notes), int(t.EndTime()), int(clean.EndTime()))
		if err := midi.WriteFile(filepath.Join(outDir, name), []*midi.Track{clean}, cleanTempo); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
