package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"go-melody/config"
	"go-melody/dataset"
	"go-melody/roll"
)

func newPrepCmd(g *globalFlags) *cobra.Command {
	var (
		dataDir    string
		out        string
		windowSize int
		workers    int
		fs         float64
	)

	cmd := &cobra.Command{
		Use:   "prep",
		Short: "Parse a MIDI directory once into a track cache for training",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := log.FromContext(ctx)

			if windowSize < 1 {
				return config.Fail("window size must be at least 1")
			}
			if fs <= 0 {
				return config.Fail("fs must be positive")
			}
			paths, err := dataset.ListMIDI(dataDir)
			if err != nil {
				return err
			}
			table, err := g.loadTable(ctx)
			if err != nil {
				return err
			}

			if out == "" {
				out = filepath.Join("data", "cache", fmt.Sprintf("dataset_%s.db", time.Now().Format("20060102_150405")))
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}
			store, err := dataset.OpenStore(out)
			if err != nil {
				return err
			}
			defer store.Close()

			loader := &dataset.Loader{
				Encoder: dataset.Encoder{
					Table:      table,
					WindowSize: windowSize,
					FS:         fs,
					Threshold:  roll.StrictThreshold,
				},
				Workers: workers,
			}

			logger.Info("preparing dataset", "files", len(paths), "out", out)
			progress := mpb.NewWithContext(ctx, mpb.WithWidth(64))
			_, err = dataset.Prepare(ctx, paths, loader, store, progress)
			progress.Wait()
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataDir, "data-dir", "data", "directory of .mid files")
	f.StringVarP(&out, "out", "o", "", "cache file (default data/cache/dataset_<time>.db)")
	f.IntVar(&windowSize, "window-size", 20, "tracks need more notes than this to be kept")
	f.IntVar(&workers, "workers", runtime.NumCPU(), "parallel file parsers")
	f.Float64Var(&fs, "fs", roll.DefaultFS, "encoder steps per second")
	return cmd
}
