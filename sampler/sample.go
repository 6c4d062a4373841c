// Package sampler generates new note sequences from a trained next-step
// model and decodes them back into MIDI tracks.
package sampler

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Predictor is the model boundary: a batch of context windows in, one
// probability vector over rest + 128 pitches out per window
type Predictor interface {
	Predict(ctx context.Context, batch [][][]float64) ([][]float64, error)
}

// Sample draws an index from dist treated as categorical weights.
// The distribution need not be normalized but must have positive mass.
func Sample(dist []float64, rng *rand.Rand) (int, error) {
	var total float64
	for i, p := range dist {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return 0, fmt.Errorf("invalid probability %v at index %d", p, i)
		}
		total += p
	}
	if total <= 0 {
		return 0, fmt.Errorf("distribution over %d classes has no mass", len(dist))
	}

	c := distuv.NewCategorical(dist, rng)
	return int(c.Rand()), nil
}

// OneHot returns a width-long vector with index set
func OneHot(index, width int) []float64 {
	v := make([]float64, width)
	v[index] = 1
	return v
}
