package sampler

import (
	"gonum.org/v1/gonum/floats"

	"go-melody/midi"
	"go-melody/roll"
)

// DecodeVelocity is the velocity of every decoded note
const DecodeVelocity = 127

// DecodeOptions controls how one-hot steps become notes
type DecodeOptions struct {
	FS      float64 // steps per second, roll.DefaultFS when zero
	Program uint8

	// AllowRepresses closes and reopens the note on every step
	AllowRepresses bool

	// FlushFinal closes the note still sounding after the last step.
	// Off by default: the last note is dropped.
	FlushFinal bool
}

// Decode turns one-hot steps (column 0 rest, then pitches) into a track
func Decode(steps [][]float64, opts DecodeOptions) *midi.Track {
	fs := opts.FS
	if fs <= 0 {
		fs = roll.DefaultFS
	}
	quantum := 1 / fs

	t := &midi.Track{Program: opts.Program}

	var (
		open    bool
		current int
		start   float64
		clock   float64
	)
	closeNote := func() {
		if open && current >= 0 {
			t.Notes = append(t.Notes, midi.Note{
				Pitch:    uint8(current),
				Start:    start,
				End:      clock,
				Velocity: DecodeVelocity,
			})
		}
	}

	for i, row := range steps {
		pitch := floats.MaxIdx(row) - 1
		if opts.AllowRepresses || !open || pitch != current {
			closeNote()
			open = true
			current = pitch
			start = clock
		}
		clock = float64(i+1) * quantum
	}

	if opts.FlushFinal {
		closeNote()
	}
	return t
}
