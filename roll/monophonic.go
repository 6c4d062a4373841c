package roll

import "go-melody/midi"

const (
	// MonophonyFS is the rate tracks are sampled at when checking monophony
	MonophonyFS = 100.0

	// DefaultThreshold tolerates a little accidental overlap
	DefaultThreshold = 0.99

	// StrictThreshold admits only strictly monophonic tracks
	StrictThreshold = 1.0
)

// PercentMonophonic returns the share of sounding steps that have exactly one
// active pitch. pr is a steps x pitches matrix without a rest column. A roll
// with no sounding step at all scores 0.
func PercentMonophonic(pr [][]float64) float64 {
	counts := make([]int, len(pr))
	for i, row := range pr {
		for _, v := range row {
			if v > 0 {
				counts[i]++
			}
		}
	}
	return percentFromCounts(counts)
}

func percentFromCounts(counts []int) float64 {
	var sounding, single int
	for _, c := range counts {
		if c > 0 {
			sounding++
		}
		if c == 1 {
			single++
		}
	}
	if sounding == 0 {
		return 0
	}
	return float64(single) / float64(sounding)
}

// TrackMonophony computes PercentMonophonic for a track sampled at
// MonophonyFS without materializing the velocity matrix
func TrackMonophony(t *midi.Track) float64 {
	return percentFromCounts(countActive(activity(t, MonophonyFS)))
}

// IsMonophonic reports whether a track is mostly single-note
func IsMonophonic(t *midi.Track, threshold float64) bool {
	return TrackMonophony(t) >= threshold
}

// FilterMonophonic keeps the tracks that pass IsMonophonic. Drum tracks and
// short tracks are the caller's business.
func FilterMonophonic(tracks []*midi.Track, threshold float64) []*midi.Track {
	var out []*midi.Track
	for _, t := range tracks {
		if IsMonophonic(t, threshold) {
			out = append(out, t)
		}
	}
	return out
}
