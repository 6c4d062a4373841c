package sampler

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"go-melody/family"
	"go-melody/window"
)

// Sequence is a generated run of one-hot steps and the family it was
// conditioned on
type Sequence struct {
	Steps  [][]float64
	Family float64
}

// Generator runs the autoregressive loop against a model
type Generator struct {
	Model   Predictor
	Options window.Options // the augmentations the model was trained with
	Rand    *rand.Rand
}

// Generate extends seed by length sampled steps. seed must hold Options.Size
// rows already augmented like the training windows. Each sampled row is
// augmented once when it enters the buffer; rows already in the buffer are
// never touched again.
func (g *Generator) Generate(ctx context.Context, seed [][]float64, length int) (Sequence, error) {
	if len(seed) == 0 {
		return Sequence{}, fmt.Errorf("empty seed")
	}

	extra := g.Options.Extra()
	width := len(seed[0]) - extra
	if width < 1 {
		return Sequence{}, fmt.Errorf("seed rows have %d columns, need more than %d", len(seed[0]), extra)
	}

	seq := Sequence{Family: seedFamily(seed[0], g.Options)}

	buf := make([][]float64, len(seed))
	for i, row := range seed {
		buf[i] = append([]float64(nil), row...)
	}

	rng := g.rng()
	logger := log.FromContext(ctx)

	for len(seq.Steps) < length {
		if err := ctx.Err(); err != nil {
			return seq, err
		}

		pred, err := g.Model.Predict(ctx, [][][]float64{buf})
		if err != nil {
			return seq, fmt.Errorf("predict step %d: %w", len(seq.Steps), err)
		}
		if len(pred) != 1 {
			return seq, fmt.Errorf("model returned %d rows, want 1", len(pred))
		}
		if len(pred[0]) != width {
			return seq, fmt.Errorf("model returned %d columns, want %d", len(pred[0]), width)
		}

		index, err := Sample(pred[0], rng)
		if err != nil {
			return seq, fmt.Errorf("sample step %d: %w", len(seq.Steps), err)
		}
		row := OneHot(index, width)
		seq.Steps = append(seq.Steps, row)

		var section []float64
		if g.Options.EncodeSection {
			section = window.SectionVector(len(seq.Steps), length)
		}
		copy(buf, buf[1:])
		buf[len(buf)-1] = window.Augment(row, seq.Family, section, g.Options)
	}

	logger.Debug("generated sequence", "steps", len(seq.Steps), "family", seq.Family)
	return seq, nil
}

func (g *Generator) rng() *rand.Rand {
	if g.Rand == nil {
		g.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g.Rand
}

// seedFamily reads the family id carried by an augmented seed row
func seedFamily(row []float64, opts window.Options) float64 {
	switch {
	case !opts.UseInstrument:
		return 0
	case opts.EncodeSection:
		return row[window.Sections]
	default:
		return row[0]
	}
}

// Program picks the output program for a sequence: the family's
// representative when the model was conditioned on family, else fallback
func Program(seq Sequence, opts window.Options, table *family.Table, fallback uint8) uint8 {
	if opts.UseInstrument && table != nil {
		return table.RepresentativeProgram(seq.Family)
	}
	return fallback
}
