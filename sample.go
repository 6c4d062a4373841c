package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"go-melody/config"
	"go-melody/dataset"
	"go-melody/family"
	"go-melody/midi"
	"go-melody/model"
	"go-melody/roll"
	"go-melody/sampler"
)

type sampleFlags struct {
	root           string
	experimentDir  string
	saveDir        string
	instrument     string
	numFiles       int
	fileLength     int
	primeFile      string
	dataDir        string
	multi          bool
	allowRepresses bool
	flushFinal     bool
	useInstrument  bool
	ignoreEmpty    bool
	encodeSection  bool
}

func newSampleCmd(g *globalFlags) *cobra.Command {
	sf := &sampleFlags{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate MIDI files from a trained experiment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, g, sf)
		},
	}

	f := cmd.Flags()
	f.StringVar(&sf.root, "experiments", config.DefaultRoot, "experiments root directory")
	f.StringVar(&sf.experimentDir, "experiment-dir", "", "experiment to load (default: most recent under --experiments)")
	f.StringVar(&sf.saveDir, "save-dir", "", "output directory (default: generated/ inside the experiment)")
	f.StringVar(&sf.instrument, "midi-instrument", "Acoustic Grand Piano", "General MIDI instrument name or number for the output")
	f.IntVar(&sf.numFiles, "num-files", 10, "number of files to sample")
	f.IntVar(&sf.fileLength, "file-length", 100, "length of each file in steps")
	f.StringVar(&sf.primeFile, "prime-file", "", "seed from this file instead of --data-dir")
	f.StringVar(&sf.dataDir, "data-dir", "data/midi", "seed windows come from these files when --prime-file is not set")
	f.BoolVar(&sf.multi, "multi-instruments", false, "sample every monophonic instrument of --prime-file into one file")
	f.BoolVar(&sf.allowRepresses, "allow-represses", false, "restart the note on every step")
	f.BoolVar(&sf.flushFinal, "flush-final", false, "keep the note still sounding at the end")
	f.BoolVar(&sf.useInstrument, "use-instrument", false, "override the experiment's instrument conditioning")
	f.BoolVar(&sf.ignoreEmpty, "ignore-empty", false, "override the experiment's empty-window filter")
	f.BoolVar(&sf.encodeSection, "encode-section", false, "override the experiment's section conditioning")
	return cmd
}

// sampleRun is everything validated before sampling starts
type sampleRun struct {
	dir     string
	cfg     *config.Experiment
	program uint8
	files   []string
	table   *family.Table
	model   *model.FeedForward
}

func runSample(cmd *cobra.Command, g *globalFlags, sf *sampleFlags) error {
	ctx := cmd.Context()
	logger := log.FromContext(ctx)

	run, err := prepareSample(cmd, g, sf)
	if err != nil {
		return err
	}

	if sf.saveDir == "" {
		sf.saveDir = filepath.Join(run.dir, config.GeneratedDir)
	}
	if err := os.MkdirAll(sf.saveDir, 0755); err != nil {
		return err
	}

	gen := &sampler.Generator{
		Model:   run.model,
		Options: run.cfg.WindowOptions(),
		Rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	dec := sampler.DecodeOptions{
		FS:             run.cfg.FS,
		AllowRepresses: sf.allowRepresses,
		FlushFinal:     sf.flushFinal,
	}

	if sf.multi {
		logger.Info("sampling from single seed file", "file", sf.primeFile)
		return sampleMulti(ctx, gen, run, sf, dec)
	}

	seeds, err := seedWindows(ctx, run)
	if err != nil {
		return err
	}
	logger.Debug("loaded seed windows", "count", len(seeds))

	for i := 1; i <= sf.numFiles; i++ {
		seed := seeds[gen.Rand.IntN(len(seeds))]
		seq, err := gen.Generate(ctx, seed, sf.fileLength)
		if err != nil {
			return err
		}

		dec.Program = sampler.Program(seq, gen.Options, run.table, run.program)
		track := sampler.Decode(seq.Steps, dec)
		path := filepath.Join(sf.saveDir, fmt.Sprintf("%d.mid", i))
		if err := midi.WriteFile(path, []*midi.Track{track}, midi.DefaultTempo); err != nil {
			return err
		}
		logger.Info("wrote midi file", "path", path, "program", midi.ProgramName(dec.Program), "notes", len(track.Notes))
	}
	return nil
}

// prepareSample validates every input so configuration errors stop the run
// before any work is done
func prepareSample(cmd *cobra.Command, g *globalFlags, sf *sampleFlags) (*sampleRun, error) {
	ctx := cmd.Context()
	run := &sampleRun{}

	if sf.primeFile != "" {
		if _, err := os.Stat(sf.primeFile); err != nil {
			return nil, config.Wrap(err, fmt.Sprintf("prime file %s does not exist", sf.primeFile))
		}
		run.files = []string{sf.primeFile}
	} else {
		if sf.multi {
			return nil, config.Fail("a prime file is required to generate a multi instrument track")
		}
		files, err := dataset.ListMIDI(sf.dataDir)
		if err != nil {
			return nil, err
		}
		run.files = files
	}
	if sf.numFiles < 1 || sf.fileLength < 1 {
		return nil, config.Fail("num-files and file-length must be at least 1")
	}

	dir, err := config.ResolveExperimentDir(sf.root, sf.experimentDir)
	if err != nil {
		return nil, err
	}
	run.dir = dir
	log.FromContext(ctx).Info("using experiment", "dir", dir)

	program, err := midi.ParseInstrument(sf.instrument)
	if err != nil {
		return nil, config.Wrap(err, err.Error())
	}
	run.program = program

	if run.cfg, err = config.LoadExperiment(dir); err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("use-instrument") {
		run.cfg.UseInstrument = sf.useInstrument
	}
	if flags.Changed("ignore-empty") {
		run.cfg.IgnoreEmpty = sf.ignoreEmpty
	}
	if flags.Changed("encode-section") {
		run.cfg.EncodeSection = sf.encodeSection
	}
	if err := run.cfg.Validate(); err != nil {
		return nil, err
	}

	if run.table, err = g.loadTable(ctx); err != nil {
		return nil, err
	}

	m, epoch, err := model.LoadLatest(dir)
	if err != nil {
		return nil, err
	}
	if want := run.cfg.WindowOptions().Columns(roll.Width); m.Spec.InputCols != want {
		return nil, config.Fail(fmt.Sprintf("model in %s takes %d columns, the augmentations give %d", dir, m.Spec.InputCols, want))
	}
	run.model = m
	log.FromContext(ctx).Info("model loaded", "dir", dir, "epoch", epoch)
	return run, nil
}

// seedWindows draws one batch of windows from the seed files, augmented the
// way the model was trained
func seedWindows(ctx context.Context, run *sampleRun) ([][][]float64, error) {
	pool := &dataset.FilePool{
		Paths: run.files,
		Loader: &dataset.Loader{
			Encoder: dataset.Encoder{
				Table:      run.table,
				WindowSize: run.cfg.WindowSize,
				FS:         run.cfg.FS,
				Threshold:  roll.StrictThreshold,
			},
			Workers: 1,
		},
	}
	gen := dataset.NewGenerator(pool, dataset.GeneratorOptions{
		Window:    run.cfg.WindowOptions(),
		BatchSize: 32,
		MaxInRAM:  10,
	})

	batch, err := gen.Next(ctx)
	if errors.Is(err, dataset.ErrExhausted) {
		return nil, fmt.Errorf("no seed windows in %d files: %w", len(run.files), err)
	}
	if err != nil {
		return nil, err
	}
	return batch.Inputs, nil
}

func sampleMulti(ctx context.Context, gen *sampler.Generator, run *sampleRun, sf *sampleFlags, dec sampler.DecodeOptions) error {
	f, err := midi.ReadFile(sf.primeFile)
	if err != nil {
		return config.Wrap(err, fmt.Sprintf("prime file %s could not be parsed", sf.primeFile))
	}
	f.RemoveInvalidNotes()

	tracks, err := gen.GenerateFromPrime(ctx, f, sampler.PrimeOptions{
		Table:     run.table,
		Length:    sf.fileLength,
		FS:        run.cfg.FS,
		Threshold: roll.StrictThreshold,
		Decode:    dec,
	})
	if err != nil {
		return err
	}

	path := filepath.Join(sf.saveDir, fmt.Sprintf("sampled_%s.mid", time.Now().Format("20060102150405")))
	if err := midi.WriteFile(path, tracks, sampler.PrimeTempo); err != nil {
		return err
	}
	log.FromContext(ctx).Info("wrote generated sample", "path", path, "instruments", len(tracks))
	return nil
}
