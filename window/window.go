// Package window slices encoded piano rolls into training windows.
package window

import (
	"go-melody/roll"
)

// Sections is the size of the section one-hot vector
const Sections = 4

// Options controls window extraction and augmentation
type Options struct {
	Size          int  // context length in steps
	UseInstrument bool // prepend the normalized family id to every context row
	IgnoreEmpty   bool // skip all-rest contexts followed by a rest
	EncodeSection bool // prepend a one-hot track-quarter vector to every context row
}

// Extra returns how many augmentation columns precede the roll columns
func (o Options) Extra() int {
	n := 0
	if o.EncodeSection {
		n += Sections
	}
	if o.UseInstrument {
		n++
	}
	return n
}

// Columns returns the width of an augmented context row for rolls of width cols
func (o Options) Columns(cols int) int {
	return o.Extra() + cols
}

// Window is a context of Size consecutive rows and the row it predicts
type Window struct {
	Context [][]float64
	Target  []float64
}

// Slide returns the raw windows of a roll: context rows [i, i+size) and the
// target row i+size+1, leaving a one-step gap between context and target.
// A roll of length L yields max(0, L-size-1) windows.
func Slide(r roll.Roll, size int) []Window {
	n := r.Len() - size - 1
	if size < 1 || n <= 0 {
		return nil
	}

	out := make([]Window, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Window{
			Context: r[i : i+size],
			Target:  r[i+size+1],
		})
	}
	return out
}

// SectionVector returns the one-hot quarter of the track the index-th of
// total windows falls into
func SectionVector(index, total int) []float64 {
	v := make([]float64, Sections)
	if total <= 0 {
		v[0] = 1
		return v
	}
	active := min(Sections*index/total, Sections-1)
	v[active] = 1
	return v
}

// Augment prefixes a roll row with the enabled side channels: the section
// one-hot first, then the family id, then the row itself. section may be nil
// when EncodeSection is off.
func Augment(row []float64, family float64, section []float64, opts Options) []float64 {
	out := make([]float64, 0, opts.Columns(len(row)))
	if opts.EncodeSection {
		out = append(out, section...)
	}
	if opts.UseInstrument {
		out = append(out, family)
	}
	return append(out, row...)
}

// isEmpty reports an all-rest context followed by a rest target
func isEmpty(w Window) bool {
	for _, row := range w.Context {
		if row[roll.RestColumn] != 1 {
			return false
		}
	}
	return w.Target[roll.RestColumn] == 1
}

// Extract slides over a roll and applies the optional filtering and
// augmentation. Section buckets are computed from each window's position
// among all windows of the roll, including the ones IgnoreEmpty drops.
func Extract(r roll.Roll, family float64, opts Options) []Window {
	raw := Slide(r, opts.Size)
	total := len(raw)

	out := make([]Window, 0, total)
	for i, w := range raw {
		if opts.IgnoreEmpty && isEmpty(w) {
			continue
		}
		if opts.Extra() == 0 {
			out = append(out, w)
			continue
		}

		var section []float64
		if opts.EncodeSection {
			section = SectionVector(i, total)
		}
		ctx := make([][]float64, len(w.Context))
		for j, row := range w.Context {
			ctx[j] = Augment(row, family, section, opts)
		}
		out = append(out, Window{Context: ctx, Target: w.Target})
	}
	return out
}
