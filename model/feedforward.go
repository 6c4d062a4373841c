// Package model is a small feed-forward next-step model: a flattened context
// window in, a softmax over rest + 128 pitches out.
package model

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"

	"go-melody/config"
)

// Spec is the architecture persisted as model.json
type Spec struct {
	WindowSize int `json:"windowSize"`
	InputCols  int `json:"inputCols"`
	OutputCols int `json:"outputCols"`
	Hidden     int `json:"hidden"`
}

// Inputs returns the length of a flattened context window
func (s Spec) Inputs() int {
	return s.WindowSize * s.InputCols
}

func (s Spec) validate() error {
	if s.WindowSize < 1 || s.InputCols < 1 || s.OutputCols < 2 || s.Hidden < 1 {
		return fmt.Errorf("invalid model spec %+v", s)
	}
	return nil
}

// FitOptions are the SGD parameters for Fit
type FitOptions struct {
	LearningRate float64
	Momentum     float64
}

// FeedForward wraps a go-deep network
type FeedForward struct {
	Spec Spec
	net  *deep.Neural
}

// New returns a freshly initialized model
func New(spec Spec) (*FeedForward, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	net := deep.NewNeural(&deep.Config{
		Inputs:     spec.Inputs(),
		Layout:     []int{spec.Hidden, spec.OutputCols},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeMultiClass,
		Loss:       deep.LossCrossEntropy,
		Weight:     deep.NewNormal(0.1, 0),
		Bias:       true,
	})
	return &FeedForward{Spec: spec, net: net}, nil
}

func (f *FeedForward) flatten(window [][]float64) ([]float64, error) {
	if len(window) != f.Spec.WindowSize {
		return nil, fmt.Errorf("window has %d rows, model expects %d", len(window), f.Spec.WindowSize)
	}
	in := make([]float64, 0, f.Spec.Inputs())
	for _, row := range window {
		if len(row) != f.Spec.InputCols {
			return nil, fmt.Errorf("row has %d columns, model expects %d", len(row), f.Spec.InputCols)
		}
		in = append(in, row...)
	}
	return in, nil
}

// Predict returns a probability distribution per context window
func (f *FeedForward) Predict(ctx context.Context, batch [][][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(batch))
	for _, w := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := f.flatten(w)
		if err != nil {
			return nil, err
		}
		out = append(out, f.net.Predict(in))
	}
	return out, nil
}

// Fit runs one SGD pass over a batch and returns the batch's mean
// cross-entropy after the update
func (f *FeedForward) Fit(ctx context.Context, inputs [][][]float64, targets [][]float64, opts FitOptions) (float64, error) {
	if len(inputs) != len(targets) {
		return 0, fmt.Errorf("%d inputs for %d targets", len(inputs), len(targets))
	}

	examples := make(training.Examples, 0, len(inputs))
	for i, w := range inputs {
		in, err := f.flatten(w)
		if err != nil {
			return 0, err
		}
		if len(targets[i]) != f.Spec.OutputCols {
			return 0, fmt.Errorf("target has %d columns, model expects %d", len(targets[i]), f.Spec.OutputCols)
		}
		examples = append(examples, training.Example{Input: in, Response: targets[i]})
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	trainer := training.NewTrainer(training.NewSGD(opts.LearningRate, opts.Momentum, 0, false), 0)
	trainer.Train(f.net, examples, nil, 1)

	var loss float64
	for _, ex := range examples {
		loss += crossEntropy(f.net.Predict(ex.Input), ex.Response)
	}
	return loss / float64(max(len(examples), 1)), nil
}

func crossEntropy(pred, target []float64) float64 {
	var l float64
	for i, t := range target {
		if t > 0 {
			l -= t * math.Log(max(pred[i], 1e-12))
		}
	}
	return l
}

// Save writes the architecture to dir/model.json
func (f *FeedForward) Save(dir string) error {
	data, err := json.MarshalIndent(f.Spec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, config.ModelFile), data, 0644)
}

// Load builds an untrained model from dir/model.json
func Load(dir string) (*FeedForward, error) {
	data, err := os.ReadFile(filepath.Join(dir, config.ModelFile))
	if err != nil {
		return nil, config.Wrap(err, dir+" is not a valid experiment: no "+config.ModelFile)
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, config.Wrap(err, filepath.Join(dir, config.ModelFile)+" is malformed")
	}
	return New(spec)
}
