package midi

import "sort"

// DrumChannel is the zero-based General MIDI percussion channel (channel 10)
const DrumChannel uint8 = 9

// Note is a single sounding note, times in seconds
type Note struct {
	Pitch    uint8   `json:"pitch"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Velocity uint8   `json:"velocity"`
}

// Duration returns the note length in seconds
func (n Note) Duration() float64 {
	return n.End - n.Start
}

// Track is one instrument part: the notes played with a single program on a single channel
type Track struct {
	Name    string `json:"name,omitempty"`
	Program uint8  `json:"program"`
	Channel uint8  `json:"channel"`
	IsDrum  bool   `json:"isDrum"`
	Notes   []Note `json:"notes"`
}

// EndTime returns the latest note end, or 0 for an empty track
func (t *Track) EndTime() float64 {
	var end float64
	for _, n := range t.Notes {
		if n.End > end {
			end = n.End
		}
	}
	return end
}

// RemoveInvalidNotes drops notes that end before (or when) they start
func (t *Track) RemoveInvalidNotes() {
	valid := t.Notes[:0]
	for _, n := range t.Notes {
		if n.End > n.Start {
			valid = append(valid, n)
		}
	}
	t.Notes = valid
}

// SortNotes orders notes by start time, then pitch
func (t *Track) SortNotes() {
	sort.SliceStable(t.Notes, func(i, j int) bool {
		if t.Notes[i].Start != t.Notes[j].Start {
			return t.Notes[i].Start < t.Notes[j].Start
		}
		return t.Notes[i].Pitch < t.Notes[j].Pitch
	})
}

// File is a parsed standard MIDI file
type File struct {
	Path   string
	Tracks []*Track
}

// RemoveInvalidNotes normalizes every track in the file
func (f *File) RemoveInvalidNotes() {
	for _, t := range f.Tracks {
		t.RemoveInvalidNotes()
	}
}

// Melodic returns the non-drum tracks
func (f *File) Melodic() []*Track {
	var out []*Track
	for _, t := range f.Tracks {
		if !t.IsDrum {
			out = append(out, t)
		}
	}
	return out
}

// CompressPauses returns a copy of the track in which every silence longer
// than maxPause seconds is shortened to maxPause. Notes keep their lengths.
// The track must be sorted by start time.
func (t *Track) CompressPauses(maxPause float64) *Track {
	out := *t
	out.Notes = make([]Note, len(t.Notes))

	var lastEnd, shift float64
	for i, n := range t.Notes {
		if n.Start > lastEnd+maxPause {
			shift += n.Start - lastEnd - maxPause
		}
		lastEnd = max(lastEnd, n.End)

		n.Start -= shift
		n.End -= shift
		out.Notes[i] = n
	}
	return &out
}
