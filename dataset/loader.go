package dataset

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"go-melody/midi"
)

// Result is the outcome of loading one file: either records or an error
type Result struct {
	Path    string
	Records []Record
	Err     error
}

// Loader parses files in parallel with a bounded number of workers. A failing
// file only fails its own Result.
type Loader struct {
	Encoder Encoder
	Workers int
}

// LoadFile parses and encodes a single file
func (l *Loader) LoadFile(path string) (records []Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = parseError(fmt.Errorf("panic: %v", r), path)
		}
	}()

	f, err := midi.ReadFile(path)
	if err != nil {
		return nil, parseError(err, path)
	}
	f.RemoveInvalidNotes()

	records = l.Encoder.Encode(f)
	if len(records) == 0 {
		return nil, parseError(errNoTracks, path)
	}
	return records, nil
}

// Load parses every path and returns one Result per path, in input order.
// The only error returned is the context's.
func (l *Loader) Load(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.Workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := l.LoadFile(path)
			results[i] = Result{Path: path, Records: records, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Records loads paths and keeps the successful records. Failing files are
// logged at warn level through the context logger.
func (l *Loader) Records(ctx context.Context, paths []string) ([]Record, error) {
	results, err := l.Load(ctx, paths)
	if err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx)
	var out []Record
	for _, r := range results {
		if r.Err != nil {
			logSkip(logger, r.Path, r.Err)
			continue
		}
		out = append(out, r.Records...)
	}
	return out, nil
}
