package inference

import (
	"fmt"
	"slices"
)

// StopPattern is a fixed, non-empty sequence of token ids that terminates
// generation when it appears verbatim at the tail of a sequence.
type StopPattern struct {
	ids []int64
}

// NewStopPattern validates and wraps a pattern. Empty patterns are
// rejected at construction.
func NewStopPattern(ids []int64) (StopPattern, error) {
	if len(ids) == 0 {
		return StopPattern{}, fmt.Errorf("%w: empty stop pattern", ErrInvalidConfiguration)
	}
	return StopPattern{ids: slices.Clone(ids)}, nil
}

// Len returns the pattern length.
func (p StopPattern) Len() int { return len(p.ids) }

// IDs returns a copy of the pattern's token ids.
func (p StopPattern) IDs() []int64 { return slices.Clone(p.ids) }

// StopDetector tracks, per batch row, a FIFO window of the last Len()
// generated tokens and a sticky stop flag. One detector watches one
// pattern; a host combines several detectors with logical OR.
type StopDetector struct {
	pattern StopPattern
	windows [][]int64
	fill    []int
	stopped []bool
}

// NewStopDetector creates a detector for rows batch rows.
func NewStopDetector(pattern StopPattern, rows int) *StopDetector {
	d := &StopDetector{
		pattern: pattern,
		windows: make([][]int64, rows),
		fill:    make([]int, rows),
		stopped: make([]bool, rows),
	}
	for r := range d.windows {
		d.windows[r] = make([]int64, pattern.Len())
	}
	return d
}

// Observe appends one generated token to a row's window, dropping the
// oldest entry, and returns the row's (sticky) stop flag. Once a row has
// matched, later tokens never clear it.
func (d *StopDetector) Observe(row int, id int64) bool {
	w := d.windows[row]
	copy(w, w[1:])
	w[len(w)-1] = id
	if d.fill[row] < len(w) {
		d.fill[row]++
	}
	if !d.stopped[row] && d.fill[row] == len(w) && slices.Equal(w, d.pattern.ids) {
		d.stopped[row] = true
	}
	return d.stopped[row]
}

// Stopped reports a row's sticky stop flag.
func (d *StopDetector) Stopped(row int) bool { return d.stopped[row] }

// AllStopped reports whether every row has matched.
func (d *StopDetector) AllStopped() bool {
	for _, s := range d.stopped {
		if !s {
			return false
		}
	}
	return true
}
