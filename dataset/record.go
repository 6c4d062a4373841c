// Package dataset turns MIDI files into encoded track records and feeds
// them to training as fixed-size window batches.
package dataset

import (
	"go-melody/family"
	"go-melody/midi"
	"go-melody/roll"
	"go-melody/window"
)

// Record is one encoded monophonic track and its normalized family id
type Record struct {
	Source string
	Roll   roll.Roll
	Family float64
}

// Windows extracts this record's training windows
func (r Record) Windows(opts window.Options) []window.Window {
	return window.Extract(r.Roll, r.Family, opts)
}

// Encoder selects and encodes the usable tracks of a parsed file
type Encoder struct {
	Table      *family.Table
	WindowSize int
	FS         float64
	Threshold  float64
}

// Encode returns a record per track that is melodic, passes the monophony
// threshold, has more notes than the window size and a non-empty roll
func (e Encoder) Encode(f *midi.File) []Record {
	var out []Record
	for _, t := range roll.FilterMonophonic(f.Melodic(), e.Threshold) {
		if len(t.Notes) <= e.WindowSize {
			continue
		}
		r := roll.Encode(t, e.FS)
		if r.Len() == 0 {
			continue
		}
		out = append(out, Record{
			Source: f.Path,
			Roll:   r,
			Family: e.Table.Normalized(t.Program),
		})
	}
	return out
}

// Events returns the total number of encoded steps across records
func Events(records []Record) int {
	n := 0
	for _, r := range records {
		n += r.Roll.Len()
	}
	return n
}
