package midi

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Resolution is the tick resolution of written files
const Resolution = smf.MetricTicks(480)

// DefaultTempo is used when a caller does not care about tempo
const DefaultTempo = 120.0

type timedMessage struct {
	tick uint32
	off  bool
	msg  gomidi.Message
}

// secondsToTicks converts an absolute time to ticks at a constant tempo
func secondsToTicks(secs, tempoBPM float64) uint32 {
	if secs <= 0 {
		return 0
	}
	return uint32(math.Round(secs * tempoBPM / 60 * float64(Resolution)))
}

// WriteFile writes the tracks as a type 1 SMF
func WriteFile(path string, tracks []*Track, tempoBPM float64) error {
	var buf bytes.Buffer
	if err := Write(&buf, tracks, tempoBPM); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Write encodes the tracks as a type 1 SMF: a tempo track followed by one
// track per instrument. Melodic parts get their own channel, skipping the
// drum channel.
func Write(w io.Writer, tracks []*Track, tempoBPM float64) error {
	if tempoBPM <= 0 {
		tempoBPM = DefaultTempo
	}

	s := smf.New()
	s.TimeFormat = Resolution

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(tempoBPM))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	nextChannel := uint8(0)
	for i, t := range tracks {
		ch := DrumChannel
		if !t.IsDrum {
			if nextChannel == DrumChannel {
				nextChannel++
			}
			ch = nextChannel % 16
			nextChannel++
		}

		if err := s.Add(encodeTrack(t, ch, tempoBPM)); err != nil {
			return fmt.Errorf("add track %d: %w", i, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("encode smf: %w", err)
	}
	return nil
}

func encodeTrack(t *Track, ch uint8, tempoBPM float64) smf.Track {
	var events []timedMessage
	for _, n := range t.Notes {
		if n.End <= n.Start {
			continue
		}
		vel := n.Velocity
		if vel == 0 {
			vel = 100
		}
		events = append(events,
			timedMessage{tick: secondsToTicks(n.Start, tempoBPM), msg: gomidi.NoteOn(ch, n.Pitch, vel)},
			timedMessage{tick: secondsToTicks(n.End, tempoBPM), off: true, msg: gomidi.NoteOff(ch, n.Pitch)},
		)
	}

	// note-offs first so back-to-back notes of the same pitch don't swallow each other
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	var tr smf.Track
	if t.Name != "" {
		tr.Add(0, smf.MetaTrackSequenceName(t.Name))
	}
	if !t.IsDrum {
		tr.Add(0, gomidi.ProgramChange(ch, t.Program))
	}

	var last uint32
	for _, ev := range events {
		tr.Add(ev.tick-last, ev.msg)
		last = ev.tick
	}
	tr.Close(0)
	return tr
}
