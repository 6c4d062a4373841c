package dataset

import (
	"context"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"go-melody/window"
)

// Batch is BatchSize context windows and the rows they predict
type Batch struct {
	Inputs  [][][]float64
	Targets [][]float64
}

// Len returns the number of examples in the batch
func (b Batch) Len() int {
	return len(b.Inputs)
}

// GeneratorOptions configures batch production
type GeneratorOptions struct {
	Window    window.Options
	BatchSize int
	MaxInRAM  int

	// Shuffle draws each refill at random without replacement instead of
	// walking the pool round-robin. Meant for validation.
	Shuffle bool
	Rand    *rand.Rand
}

// Generator is a pull-based batch source over a Pool. Each refill takes the
// next MaxInRAM items, extracts all their windows and cuts them into full
// batches; a trailing partial batch is dropped. The consumer stops by no
// longer calling Next.
type Generator struct {
	pool Pool
	opts GeneratorOptions

	cursor  int
	refills int
	pending []Batch
}

// NewGenerator returns a generator positioned at the start of the pool
func NewGenerator(pool Pool, opts GeneratorOptions) *Generator {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxInRAM < 1 {
		opts.MaxInRAM = 1
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{pool: pool, opts: opts}
}

// Refills returns how many times the generator has drawn from the pool
func (g *Generator) Refills() int {
	return g.refills
}

// Next returns the next batch. It returns ErrExhausted when a full pass over
// the pool yields no batch, and the context's error once it is done.
func (g *Generator) Next(ctx context.Context) (Batch, error) {
	size := g.pool.Len()
	visited := 0
	for len(g.pending) == 0 {
		if size == 0 || visited >= size {
			return Batch{}, ErrExhausted
		}
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}

		indices := g.nextIndices()
		visited += len(indices)

		records, err := g.pool.Load(ctx, indices)
		if err != nil {
			return Batch{}, err
		}
		g.pending = g.batches(ctx, records)
	}

	b := g.pending[0]
	g.pending = g.pending[1:]
	return b, nil
}

// nextIndices picks the pool items for one refill. Round-robin takes a
// contiguous run from the cursor up to the end of the pool, then wraps.
func (g *Generator) nextIndices() []int {
	g.refills++
	size := g.pool.Len()
	n := min(g.opts.MaxInRAM, size)

	if g.opts.Shuffle {
		return g.opts.Rand.Perm(size)[:n]
	}

	end := min(g.cursor+n, size)
	indices := make([]int, 0, end-g.cursor)
	for i := g.cursor; i < end; i++ {
		indices = append(indices, i)
	}
	g.cursor = end % size
	return indices
}

func (g *Generator) batches(ctx context.Context, records []Record) []Batch {
	var inputs [][][]float64
	var targets [][]float64
	for _, r := range records {
		for _, w := range r.Windows(g.opts.Window) {
			inputs = append(inputs, w.Context)
			targets = append(targets, w.Target)
		}
	}

	bs := g.opts.BatchSize
	var out []Batch
	i := 0
	for ; i+bs <= len(inputs); i += bs {
		out = append(out, Batch{
			Inputs:  inputs[i : i+bs],
			Targets: targets[i : i+bs],
		})
	}

	log.FromContext(ctx).Debug("refilled",
		"records", len(records),
		"windows", len(inputs),
		"batches", len(out),
		"dropped", len(inputs)-i,
	)
	return out
}
