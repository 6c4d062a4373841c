package midi

import (
	"fmt"
	"io"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

// trackKey identifies an instrument part inside a file
type trackKey struct {
	track   int
	channel uint8
	program uint8
}

// openKey identifies a sounding note waiting for its note-off
type openKey struct {
	track   int
	channel uint8
	pitch   uint8
}

type openNote struct {
	start    float64
	velocity uint8
	program  uint8
}

// ReadFile parses a standard MIDI file into instrument tracks
func ReadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	file.Path = path
	return file, nil
}

// Read parses SMF data into instrument tracks. Notes are grouped by
// (SMF track, channel, program) and timed in seconds via the tempo map.
func Read(r io.Reader) (*File, error) {
	parts := make(map[trackKey]*Track)
	var order []trackKey

	programs := make(map[[2]int]uint8) // (track, channel) -> current program
	names := make(map[int]string)
	pending := make(map[openKey][]openNote)

	rd := smf.ReadTracksFrom(r)
	rd.Do(func(ev smf.TrackEvent) {
		secs := float64(ev.AbsMicroSeconds) / 1e6

		var ch, key, vel, prog uint8
		var text string

		switch {
		case ev.Message.GetMetaTrackName(&text):
			names[ev.TrackNo] = text

		case ev.Message.GetProgramChange(&ch, &prog):
			programs[[2]int{ev.TrackNo, int(ch)}] = prog

		case ev.Message.GetNoteStart(&ch, &key, &vel):
			ok := openKey{track: ev.TrackNo, channel: ch, pitch: key}
			pending[ok] = append(pending[ok], openNote{
				start:    secs,
				velocity: vel,
				program:  programs[[2]int{ev.TrackNo, int(ch)}],
			})

		case ev.Message.GetNoteEnd(&ch, &key):
			ok := openKey{track: ev.TrackNo, channel: ch, pitch: key}
			queue := pending[ok]
			if len(queue) == 0 {
				return // stray note-off
			}
			on := queue[0]
			pending[ok] = queue[1:]

			tk := trackKey{track: ev.TrackNo, channel: ch, program: on.program}
			t, exists := parts[tk]
			if !exists {
				t = &Track{
					Program: on.program,
					Channel: ch,
					IsDrum:  ch == DrumChannel,
				}
				parts[tk] = t
				order = append(order, tk)
			}
			t.Notes = append(t.Notes, Note{
				Pitch:    key,
				Start:    on.start,
				End:      secs,
				Velocity: on.velocity,
			})
		}
	})

	if err := rd.Error(); err != nil {
		return nil, err
	}

	file := &File{}
	for _, tk := range order {
		t := parts[tk]
		t.Name = names[tk.track]
		t.SortNotes()
		file.Tracks = append(file.Tracks, t)
	}
	return file, nil
}
