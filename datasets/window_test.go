package datasets

import (
	"errors"
	"reflect"
	"testing"
)

// gridSeries builds a feature series on a unit grid: row i holds the single
// value base+i at timestamp i. Using a non-zero base keeps real rows
// distinguishable from zero-filled misses.
func gridSeries(n int, base float64) (features [][]float64, times []float64) {
	features = make([][]float64, n)
	times = make([]float64, n)
	for i := range n {
		features[i] = []float64{base + float64(i)}
		times[i] = float64(i)
	}
	return features, times
}

func TestAligner_GridFullMatch(t *testing.T) {
	features := [][]float64{
		{0, 0}, {1, 10}, {2, 20}, {3, 30}, {4, 40}, {5, 50}, {6, 60}, {7, 70},
	}
	times := []float64{0, 1, 2, 3, 4, 5, 6, 7}

	// Labels three rows apart, windows of the three samples up to each label.
	spec := WindowSpec{Offsets: []float64{-2, -1, 0}, Start: 0, Skip: 1, Stride: 3}
	windows, err := NewAligner(0).Align(features, times, []float64{2, 5}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	want := [][][]float64{
		{{0, 0}, {1, 10}, {2, 20}},
		{{3, 30}, {4, 40}, {5, 50}},
	}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("Align mismatch:\ngot  %v\nwant %v", windows, want)
	}
}

// The search position only ever moves forward: a window whose early offsets
// sit behind the current position picks up the correct later samples.
func TestAligner_ForwardWalk(t *testing.T) {
	features, times := gridSeries(6, 1)

	spec := WindowSpec{Offsets: []float64{-2, -1, 0}, Start: 0, Skip: 1, Stride: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{3}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	want := [][][]float64{{{2}, {3}, {4}}}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("Align mismatch: got %v want %v", windows, want)
	}
}

// An offset reaching before the start of the data zero-fills without
// disturbing the later offsets of the same window.
func TestAligner_OffsetBeforeData(t *testing.T) {
	features, times := gridSeries(6, 10)

	spec := WindowSpec{Offsets: []float64{-5, 0}, Start: 0, Skip: 1, Stride: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{3}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	// target 3-5=-2 has no sample and zero-fills; target 3 matches row 3.
	want := [][][]float64{{{0}, {13}}}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("Align mismatch: got %v want %v", windows, want)
	}
}

// A dropped sample in the middle of a window zero-fills that position while
// its neighbors still match.
func TestAligner_DroppedSampleZeroFills(t *testing.T) {
	features := [][]float64{{10}, {11}, {13}, {14}}
	times := []float64{0, 1, 3, 4}

	spec := WindowSpec{Offsets: []float64{-2, -1, 0}, Start: 0, Skip: 1, Stride: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{4}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	want := [][][]float64{{{0}, {13}, {14}}}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("Align mismatch: got %v want %v", windows, want)
	}
}

func TestAligner_SkipStepsOverGrid(t *testing.T) {
	features, times := gridSeries(8, 1)

	// Offsets two time units apart on a unit grid, so the position must jump
	// two rows after each match.
	spec := WindowSpec{Offsets: []float64{-4, -2, 0}, Start: 0, Skip: 2, Stride: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{4}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}

	want := [][][]float64{{{1}, {3}, {5}}}
	if !reflect.DeepEqual(windows, want) {
		t.Fatalf("Align mismatch: got %v want %v", windows, want)
	}
}

func TestAligner_EmptyLabelTimes(t *testing.T) {
	features, times := gridSeries(4, 1)

	spec := WindowSpec{Offsets: []float64{0}, Skip: 1}
	windows, err := NewAligner(0).Align(features, times, nil, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if len(windows) != 0 {
		t.Fatalf("expected no windows for empty label times, got %d", len(windows))
	}
}

func TestAligner_Tolerance(t *testing.T) {
	features := [][]float64{{7}}
	times := []float64{1.0005}
	spec := WindowSpec{Offsets: []float64{0}, Skip: 1}

	// Within a loose tolerance the jittered sample matches.
	windows, err := NewAligner(1e-3).Align(features, times, []float64{1.0}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if !reflect.DeepEqual(windows[0][0], []float64{7}) {
		t.Fatalf("expected jittered sample to match within tolerance, got %v", windows[0][0])
	}

	// At the default tolerance the same sample misses and zero-fills.
	windows, err = NewAligner(0).Align(features, times, []float64{1.0}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if !reflect.DeepEqual(windows[0][0], []float64{0}) {
		t.Fatalf("expected zero fill outside tolerance, got %v", windows[0][0])
	}
}

func TestAligner_NegativeStartClamps(t *testing.T) {
	features, times := gridSeries(3, 1)

	spec := WindowSpec{Offsets: []float64{0}, Start: -5, Skip: 1, Stride: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{0}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	if !reflect.DeepEqual(windows[0][0], []float64{1}) {
		t.Fatalf("expected first row despite negative start, got %v", windows[0][0])
	}
}

func TestAligner_LengthMismatch(t *testing.T) {
	features, times := gridSeries(4, 1)

	spec := WindowSpec{Offsets: []float64{0}, Skip: 1}
	_, err := NewAligner(0).Align(features, times[:3], []float64{1}, spec)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAligner_InvalidSpec(t *testing.T) {
	features, times := gridSeries(4, 1)

	if _, err := NewAligner(0).Align(features, times, []float64{1}, WindowSpec{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for empty offsets, got %v", err)
	}

	spec := WindowSpec{Offsets: []float64{0, -1}, Skip: 1}
	if _, err := NewAligner(0).Align(features, times, []float64{1}, spec); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for descending offsets, got %v", err)
	}
}

// Windows hold copies, so the source table can be reused or mutated after
// alignment.
func TestAligner_WindowsAreCopies(t *testing.T) {
	features, times := gridSeries(4, 1)

	spec := WindowSpec{Offsets: []float64{0}, Skip: 1}
	windows, err := NewAligner(0).Align(features, times, []float64{2}, spec)
	if err != nil {
		t.Fatalf("Align failed: %v", err)
	}
	features[2][0] = 999
	if windows[0][0][0] != 3 {
		t.Fatalf("window aliases the source table: got %v", windows[0][0][0])
	}
}

func TestEvenOffsets(t *testing.T) {
	got := EvenOffsets(4, 0.5)
	want := []float64{-1.5, -1, -0.5, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("EvenOffsets mismatch: got %v want %v", got, want)
	}

	if got := EvenOffsets(1, 0.5); !reflect.DeepEqual(got, []float64{0}) {
		t.Fatalf("EvenOffsets(1) mismatch: got %v", got)
	}
	if got := EvenOffsets(0, 0.5); len(got) != 0 {
		t.Fatalf("EvenOffsets(0) should be empty, got %v", got)
	}
}

func TestNewAligner_DefaultTolerance(t *testing.T) {
	if a := NewAligner(0); a.Tolerance != DefaultTolerance {
		t.Fatalf("expected default tolerance %v, got %v", DefaultTolerance, a.Tolerance)
	}
	if a := NewAligner(0.25); a.Tolerance != 0.25 {
		t.Fatalf("expected tolerance 0.25, got %v", a.Tolerance)
	}
}

func BenchmarkAlign(b *testing.B) {
	const n = 10000
	features := make([][]float64, n)
	times := make([]float64, n)
	for i := range n {
		features[i] = []float64{float64(i), float64(i) * 2, float64(i) * 3}
		times[i] = float64(i) * 0.01
	}
	labelTimes := make([]float64, n/10)
	for i := range labelTimes {
		labelTimes[i] = float64(i*10+16) * 0.01
	}
	spec := WindowSpec{Offsets: EvenOffsets(16, 0.01), Start: 0, Skip: 1, Stride: 10}
	aligner := NewAligner(1e-6)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := aligner.Align(features, times, labelTimes, spec); err != nil {
			b.Fatal(err)
		}
	}
}
