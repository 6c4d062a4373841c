package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"go-melody/config"
	"go-melody/dataset"
	"go-melody/family"
	"go-melody/model"
	"go-melody/roll"
)

type trainFlags struct {
	dataDir       string
	cache         string
	root          string
	name          string
	epochs        int
	stepsPerEpoch int
	workers       int
}

func newTrainCmd(g *globalFlags) *cobra.Command {
	tf := &trainFlags{}
	cfg := config.DefaultExperiment()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the baseline next-step model into a new experiment directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if tf.epochs < 1 || tf.stepsPerEpoch < 1 {
				return config.Fail("epochs and steps per epoch must be at least 1")
			}
			return runTrain(cmd.Context(), g, tf, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&tf.dataDir, "data-dir", "data", "directory of .mid files")
	f.StringVar(&tf.cache, "cache", "", "train from a track cache written by prep instead of parsing --data-dir")
	f.StringVar(&tf.root, "experiments", config.DefaultRoot, "experiments root directory")
	f.StringVar(&tf.name, "experiment-dir", "", "experiment directory to create (default: next numbered dir under --experiments)")
	f.IntVar(&tf.epochs, "epochs", 10, "training epochs")
	f.IntVar(&tf.stepsPerEpoch, "steps-per-epoch", 100, "batches per epoch")
	f.IntVar(&tf.workers, "workers", runtime.NumCPU(), "parallel file parsers")

	f.IntVar(&cfg.WindowSize, "window-size", cfg.WindowSize, "context window length in steps")
	f.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "windows per batch")
	f.IntVar(&cfg.MaxInRAM, "max-files-in-ram", cfg.MaxInRAM, "pool items parsed per refill")
	f.IntVar(&cfg.HiddenUnits, "hidden", cfg.HiddenUnits, "hidden layer width")
	f.Float64Var(&cfg.LearningRate, "learning-rate", cfg.LearningRate, "SGD learning rate")
	f.Float64Var(&cfg.Momentum, "momentum", cfg.Momentum, "SGD momentum")
	f.BoolVar(&cfg.UseInstrument, "use-instrument", false, "condition on the instrument family")
	f.BoolVar(&cfg.IgnoreEmpty, "ignore-empty", false, "skip all-rest windows with a rest target")
	f.BoolVar(&cfg.EncodeSection, "encode-section", false, "condition on the track quarter")
	return cmd
}

func runTrain(ctx context.Context, g *globalFlags, tf *trainFlags, cfg *config.Experiment) error {
	logger := log.FromContext(ctx)

	table, err := g.loadTable(ctx)
	if err != nil {
		return err
	}
	pool, err := trainingPool(ctx, tf, cfg, table)
	if err != nil {
		return err
	}

	opts := cfg.WindowOptions()
	gen := dataset.NewGenerator(pool, dataset.GeneratorOptions{
		Window:    opts,
		BatchSize: cfg.BatchSize,
		MaxInRAM:  cfg.MaxInRAM,
	})

	// the first batch is pulled before anything is written so a data dir
	// without usable windows leaves no experiment behind
	first, err := gen.Next(ctx)
	if err != nil {
		if errors.Is(err, dataset.ErrExhausted) {
			return config.Wrap(err, "no training windows: check --data-dir and --window-size")
		}
		return err
	}

	dir, err := config.CreateExperimentDir(tf.root, tf.name)
	if err != nil {
		return err
	}
	logger.Info("created experiment", "dir", dir, "pool", pool.Len())
	if err := cfg.Save(dir); err != nil {
		return err
	}

	m, err := model.New(model.Spec{
		WindowSize: cfg.WindowSize,
		InputCols:  opts.Columns(roll.Width),
		OutputCols: roll.Width,
		Hidden:     cfg.HiddenUnits,
	})
	if err != nil {
		return err
	}
	if err := m.Save(dir); err != nil {
		return err
	}

	fit := model.FitOptions{LearningRate: cfg.LearningRate, Momentum: cfg.Momentum}
	next := func() (dataset.Batch, error) {
		if first.Len() > 0 {
			b := first
			first = dataset.Batch{}
			return b, nil
		}
		return gen.Next(ctx)
	}

	progress := mpb.NewWithContext(ctx, mpb.WithWidth(64))
	defer progress.Wait()

	for epoch := 1; epoch <= tf.epochs; epoch++ {
		bar := progress.AddBar(int64(tf.stepsPerEpoch),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("Epoch %d: ", epoch)),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)

		var total float64
		for step := 0; step < tf.stepsPerEpoch; step++ {
			batch, err := next()
			if err != nil {
				bar.Abort(false)
				if errors.Is(err, dataset.ErrExhausted) {
					return config.Wrap(err, "no training windows: check --data-dir and --window-size")
				}
				return err
			}
			loss, err := m.Fit(ctx, batch.Inputs, batch.Targets, fit)
			if err != nil {
				bar.Abort(false)
				return err
			}
			total += loss
			bar.Increment()
		}

		if err := m.SaveCheckpoint(dir, epoch); err != nil {
			return err
		}
		logger.Info("epoch done", "epoch", epoch, "loss", total/float64(tf.stepsPerEpoch), "refills", gen.Refills())
	}
	return nil
}

func trainingPool(ctx context.Context, tf *trainFlags, cfg *config.Experiment, table *family.Table) (dataset.Pool, error) {
	if tf.cache != "" {
		store, err := dataset.OpenStore(tf.cache)
		if err != nil {
			return nil, config.Wrap(err, "track cache "+tf.cache+" could not be opened")
		}
		defer store.Close()
		records, err := store.All(ctx)
		if err != nil {
			return nil, err
		}
		return dataset.RecordPool(records), nil
	}

	paths, err := dataset.ListMIDI(tf.dataDir)
	if err != nil {
		return nil, err
	}
	return &dataset.FilePool{
		Paths: paths,
		Loader: &dataset.Loader{
			Encoder: dataset.Encoder{
				Table:      table,
				WindowSize: cfg.WindowSize,
				FS:         cfg.FS,
				Threshold:  roll.StrictThreshold,
			},
			Workers: tf.workers,
		},
	}, nil
}
