package sampler

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"go-melody/family"
	"go-melody/midi"
	"go-melody/roll"
	"go-melody/window"
)

const (
	// MinSeeds is how many non-silent windows an instrument needs to be sampled
	MinSeeds = 6

	// PrimeTempo is the tempo multi-instrument samples are written at
	PrimeTempo = 80.0
)

// Seeds returns the un-augmented context windows of a track that are not
// entirely rests
func Seeds(t *midi.Track, size int, fs float64) [][][]float64 {
	var out [][][]float64
	for _, w := range window.Slide(roll.Encode(t, fs), size) {
		if allRests(w.Context) {
			continue
		}
		out = append(out, w.Context)
	}
	return out
}

func allRests(rows [][]float64) bool {
	for _, row := range rows {
		if row[roll.RestColumn] != 1 {
			return false
		}
	}
	return true
}

// PrimeOptions configures multi-instrument sampling from a prime file
type PrimeOptions struct {
	Table     *family.Table
	Length    int
	FS        float64
	Threshold float64
	Decode    DecodeOptions
}

// GenerateFromPrime samples a new part for every monophonic instrument of f
// with enough seed material, seeding each from a random window of its own
// part and keeping its program. It fails with KindEmpty when no instrument
// qualifies.
func (g *Generator) GenerateFromPrime(ctx context.Context, f *midi.File, opts PrimeOptions) ([]*midi.Track, error) {
	logger := log.FromContext(ctx)

	var out []*midi.Track
	for _, t := range roll.FilterMonophonic(f.Melodic(), opts.Threshold) {
		seeds := Seeds(t, g.Options.Size, opts.FS)
		if len(seeds) < MinSeeds {
			logger.Debug("not enough seed windows", "program", t.Program, "seeds", len(seeds))
			continue
		}

		fam := opts.Table.Normalized(t.Program)
		var section []float64
		if g.Options.EncodeSection {
			section = window.SectionVector(0, opts.Length)
		}
		raw := seeds[g.rng().IntN(len(seeds))]
		seed := make([][]float64, len(raw))
		for i, row := range raw {
			seed[i] = window.Augment(row, fam, section, g.Options)
		}

		seq, err := g.Generate(ctx, seed, opts.Length)
		if err != nil {
			return nil, fmt.Errorf("program %d: %w", t.Program, err)
		}

		dec := opts.Decode
		dec.FS = opts.FS
		dec.Program = t.Program
		track := Decode(seq.Steps, dec)
		track.Name = t.Name
		out = append(out, track)
		logger.Info("sampled instrument", "program", t.Program, "name", midi.ProgramName(t.Program), "notes", len(track.Notes))
	}

	if len(out) == 0 {
		return nil, emptyResult(fmt.Sprintf("found no monophonic instruments in %s", f.Path))
	}
	return out, nil
}
