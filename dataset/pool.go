package dataset

import "context"

// Pool is the indexed source a Generator refills from
type Pool interface {
	Len() int
	Load(ctx context.Context, indices []int) ([]Record, error)
}

// RecordPool serves records that were prepared ahead of time
type RecordPool []Record

func (p RecordPool) Len() int { return len(p) }

func (p RecordPool) Load(ctx context.Context, indices []int) ([]Record, error) {
	out := make([]Record, 0, len(indices))
	for _, i := range indices {
		out = append(out, p[i])
	}
	return out, nil
}

// FilePool parses its files on demand. Each pool item is one file, so a
// refill window of MaxInRAM means that many files in memory at once.
type FilePool struct {
	Paths  []string
	Loader *Loader
}

func (p *FilePool) Len() int { return len(p.Paths) }

func (p *FilePool) Load(ctx context.Context, indices []int) ([]Record, error) {
	paths := make([]string, 0, len(indices))
	for _, i := range indices {
		paths = append(paths, p.Paths[i])
	}
	return p.Loader.Records(ctx, paths)
}
