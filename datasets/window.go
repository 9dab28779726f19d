package datasets

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultTolerance is the timestamp comparison tolerance used when an Aligner
// is built with a non-positive tolerance. Matching is never exact equality:
// two timestamps refer to the same sample when they differ by less than this.
const DefaultTolerance = 1e-8

// WindowSpec describes the layout of one training window relative to a label
// timestamp.
//
// Offsets are the time deltas, in the same unit as the timestamp columns,
// added to a label timestamp to produce the target times of the window. They
// are expected in ascending order; offsets are usually negative or zero so
// the window looks backward from the label. len(Offsets) is the window
// length.
//
// Start, Skip and Stride control the search position in the feature series:
// the window for label i starts searching at index Start + i*Stride, and the
// position jumps ahead by Skip after every matched offset. On a regular
// sampling grid, Skip set to the number of feature rows between consecutive
// offsets and Stride set to the number of rows between consecutive labels
// keep the search aligned with the data; the aligner only ever moves the
// position forward, so conservative (small) values cost a little scanning
// rather than wrong output.
type WindowSpec struct {
	Offsets []float64
	Start   int
	Skip    int
	Stride  int
}

// Len returns the window length, the number of offsets.
func (s WindowSpec) Len() int { return len(s.Offsets) }

func (s WindowSpec) validate() error {
	if len(s.Offsets) == 0 {
		return fmt.Errorf("%w: window spec has no offsets", ErrConfig)
	}
	for i := 1; i < len(s.Offsets); i++ {
		if s.Offsets[i] < s.Offsets[i-1] {
			return fmt.Errorf("%w: window offsets must be ascending, got %v before %v",
				ErrConfig, s.Offsets[i-1], s.Offsets[i])
		}
	}
	return nil
}

// EvenOffsets builds n evenly spaced offsets ending at zero, so the last
// window position lands on the label timestamp itself. spacing is the gap
// between consecutive offsets in time units.
func EvenOffsets(n int, spacing float64) []float64 {
	offsets := make([]float64, n)
	if n < 2 {
		return offsets
	}
	floats.Span(offsets, -float64(n-1)*spacing, 0)
	return offsets
}

// Aligner joins a timestamped feature series against label timestamps,
// producing one window of feature rows per label. Window positions whose
// target time has no feature sample within Tolerance are filled with a zero
// vector, so every window always has exactly len(spec.Offsets) rows.
type Aligner struct {
	Tolerance float64
}

// NewAligner returns an Aligner with the given timestamp tolerance. A
// non-positive tolerance selects DefaultTolerance.
func NewAligner(tolerance float64) *Aligner {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Aligner{Tolerance: tolerance}
}

// Align builds one window per label timestamp.
//
// features and featureTimes must have the same length and be ordered by time.
// For label i the search position starts at max(spec.Start + i*spec.Stride, 0)
// and then, per offset, advances forward until the current feature timestamp
// is no longer below target-Tolerance. If the sample there is within
// Tolerance of the target the row is copied into the window and the position
// jumps ahead by spec.Skip; otherwise the window row is zero-filled and the
// position stays, since the sample it rests on may still serve a later
// offset. The search never moves backward inside a window.
//
// An empty labelTimes yields an empty result, not an error.
func (a *Aligner) Align(features [][]float64, featureTimes, labelTimes []float64, spec WindowSpec) ([][][]float64, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if len(features) != len(featureTimes) {
		return nil, fmt.Errorf("%w: %d feature rows vs %d feature timestamps",
			ErrShapeMismatch, len(features), len(featureTimes))
	}
	width := 0
	if len(features) > 0 {
		width = len(features[0])
	}

	windows := make([][][]float64, len(labelTimes))
	for i, labelTime := range labelTimes {
		search := spec.Start + i*spec.Stride
		if search < 0 {
			search = 0
		}
		window := make([][]float64, spec.Len())
		for j, offset := range spec.Offsets {
			target := labelTime + offset
			for search < len(featureTimes) && featureTimes[search] < target-a.Tolerance {
				search++
			}
			if search < len(featureTimes) && math.Abs(featureTimes[search]-target) <= a.Tolerance {
				row := make([]float64, width)
				copy(row, features[search])
				window[j] = row
				search += spec.Skip
				if search < 0 {
					search = 0
				}
			} else {
				window[j] = make([]float64, width)
			}
		}
		windows[i] = window
	}
	return windows, nil
}
