package dataset

import (
	"errors"
	"fmt"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"github.com/charmbracelet/log"
)

// KindParse tags a file that could not be parsed or held no usable track.
// These are skipped and logged, never returned to a batch consumer.
const KindParse ftag.Kind = "file_parse"

// ErrExhausted is returned by Generator.Next when a full pass over the pool
// produced no batch
var ErrExhausted = errors.New("dataset: pool cannot produce a full batch")

var errNoTracks = errors.New("no usable monophonic track")

func parseError(err error, path string) error {
	return fault.Wrap(err,
		ftag.With(KindParse),
		fmsg.With("parse "+path),
	)
}

// IsParse reports whether err is a per-file parse failure
func IsParse(err error) bool {
	return err != nil && ftag.Get(err) == KindParse
}

// logSkip reports a skipped file: the one-line message at warn, the full
// fault chain with its locations at debug
func logSkip(logger *log.Logger, path string, err error) {
	logger.Warn("skipping file", "path", path, "err", err.Error())
	logger.Debug("skipped file detail", "path", path, "chain", fmt.Sprintf("%+v", err))
}
