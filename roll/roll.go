// Package roll quantizes note tracks into fixed-timestep piano rolls.
package roll

import (
	"math/bits"

	"gonum.org/v1/gonum/floats"

	"go-melody/midi"
)

const (
	// DefaultFS is the encoder's quantization rate in steps per second
	DefaultFS = 4.0

	// Pitches is the number of pitch columns
	Pitches = 128

	// Width is the encoded row width: rest column plus one column per pitch
	Width = Pitches + 1

	// RestColumn is the index of the rest indicator in an encoded row
	RestColumn = 0

	// epsilon keeps float noise from tick->seconds conversion out of step boundaries
	epsilon = 1e-9
)

// Roll is an encoded piano roll: one row per time step, column 0 is the
// rest indicator, columns 1..128 are pitches 0..127
type Roll [][]float64

// Len returns the number of time steps
func (r Roll) Len() int {
	return len(r)
}

// Cols returns the row width (0 for an empty roll)
func (r Roll) Cols() int {
	if len(r) == 0 {
		return 0
	}
	return len(r[0])
}

// IsRest reports whether step i is flagged as a rest
func (r Roll) IsRest(i int) bool {
	return r[i][RestColumn] == 1
}

// Pitch returns the single active pitch of step i, or -1 for a rest
func (r Roll) Pitch(i int) int {
	if r.IsRest(i) {
		return -1
	}
	return floats.MaxIdx(r[i][1:])
}

func step(secs, fs float64) int {
	return int(secs*fs + epsilon)
}

// PianoRoll samples a track at fs steps per second into a steps x 128
// velocity matrix. Each note adds its velocity to the steps
// [start*fs, end*fs); the roll ends at the last note-off. A non-positive fs
// gives an empty roll.
func PianoRoll(t *midi.Track, fs float64) [][]float64 {
	if fs <= 0 {
		return nil
	}
	steps := step(t.EndTime(), fs)
	pr := make([][]float64, steps)
	for i := range pr {
		pr[i] = make([]float64, Pitches)
	}

	for _, n := range t.Notes {
		to := min(step(n.End, fs), steps)
		for s := step(n.Start, fs); s < to; s++ {
			pr[s][n.Pitch] += float64(n.Velocity)
		}
	}
	return pr
}

// Encode converts a (monophonic) track into an encoded roll: binary pitch
// activity at fs steps per second, leading silence trimmed, and a rest
// column prepended. A step is a rest when its activity sum is not exactly
// one, so accidental polyphony is flagged as a rest too.
func Encode(t *midi.Track, fs float64) Roll {
	pr := PianoRoll(t, fs)

	first := -1
	for i, row := range pr {
		if floats.Sum(row) > 0 {
			first = i
			break
		}
	}
	if first < 0 {
		return Roll{}
	}

	out := make(Roll, 0, len(pr)-first)
	for _, row := range pr[first:] {
		enc := make([]float64, Width)
		var active float64
		for p, v := range row {
			if v > 0 {
				enc[p+1] = 1
				active++
			}
		}
		if active != 1 {
			enc[RestColumn] = 1
		}
		out = append(out, enc)
	}
	return out
}

// activity returns, per step, the set of active pitches as a 128-bit mask
func activity(t *midi.Track, fs float64) [][2]uint64 {
	if fs <= 0 {
		return nil
	}
	steps := step(t.EndTime(), fs)
	masks := make([][2]uint64, steps)
	for _, n := range t.Notes {
		if n.Velocity == 0 {
			continue
		}
		word, bit := n.Pitch/64, n.Pitch%64
		to := min(step(n.End, fs), steps)
		for s := step(n.Start, fs); s < to; s++ {
			masks[s][word] |= 1 << bit
		}
	}
	return masks
}

func countActive(masks [][2]uint64) []int {
	counts := make([]int, len(masks))
	for i, m := range masks {
		counts[i] = bits.OnesCount64(m[0]) + bits.OnesCount64(m[1])
	}
	return counts
}
