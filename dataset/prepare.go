package dataset

import (
	"context"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// PrepareStats summarizes a preparation pass
type PrepareStats struct {
	Files   int
	Skipped int
	Tracks  int
	Events  int
}

// Prepare parses paths in shuffled order and stores the usable tracks.
// Unparseable files are skipped. A nil progress container disables the bar.
func Prepare(ctx context.Context, paths []string, loader *Loader, store *Store, progress *mpb.Progress) (PrepareStats, error) {
	paths = append([]string(nil), paths...)
	rand.Shuffle(len(paths), func(i, j int) { paths[i], paths[j] = paths[j], paths[i] })

	var bar *mpb.Bar
	if progress != nil {
		bar = progress.AddBar(int64(len(paths)),
			mpb.PrependDecorators(
				decor.Name("Preparing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
		defer func() {
			if !bar.Completed() {
				bar.Abort(false)
			}
		}()
	}

	logger := log.FromContext(ctx)
	stats := PrepareStats{Files: len(paths)}

	// parse in chunks so memory stays bounded on large corpora
	chunk := max(loader.Workers, 1) * 8
	for start := 0; start < len(paths); start += chunk {
		results, err := loader.Load(ctx, paths[start:min(start+chunk, len(paths))])
		if err != nil {
			return stats, err
		}

		var records []Record
		for _, r := range results {
			if bar != nil {
				bar.Increment()
			}
			if r.Err != nil {
				stats.Skipped++
				logSkip(logger, r.Path, r.Err)
				continue
			}
			records = append(records, r.Records...)
		}

		if err := store.Put(ctx, records); err != nil {
			return stats, err
		}
		stats.Tracks += len(records)
		stats.Events += Events(records)
		logger.Debug("progress", "done", min(start+chunk, len(paths)), "of", len(paths), "tracks", stats.Tracks, "events", stats.Events)
	}

	if bar != nil {
		bar.SetTotal(-1, true)
	}
	logger.Info("prepared dataset", "files", stats.Files, "skipped", stats.Skipped, "tracks", stats.Tracks, "events", stats.Events)
	return stats, nil
}
