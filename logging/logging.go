// Package logging builds the process logger: leveled console output plus an
// optional truncated debug file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Options controls logger construction
type Options struct {
	Verbose   bool
	DebugFile string    // tee every record here, truncated on open
	Out       io.Writer // defaults to stderr
}

// DefaultDebugPath returns ~/.config/go-melody/debug.log
func DefaultDebugPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "go-melody", "debug.log")
}

// New returns a logger and a func that closes the debug file, if any
func New(opts Options) (*log.Logger, func() error, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	closer := func() error { return nil }

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	if opts.DebugFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.DebugFile), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.DebugFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(out, f)
		closer = f.Close
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	if opts.DebugFile != "" {
		logger.Debug("debug logging started", "file", opts.DebugFile)
	}
	return logger, closer, nil
}
