package datasets

import (
	"errors"
	"reflect"
	"testing"
)

func initializedDataset(t *testing.T, labels []string, labelTimes []float64) *WindowDataset {
	t.Helper()
	tmp := t.TempDir()
	g := writeGroup(t, tmp, "a_", 12, 0, labels, labelTimes)

	ds, err := NewWindowDataset([]FileGroup{g}, Config{Spec: unitSpec(), Seed: 1})
	if err != nil {
		t.Fatalf("NewWindowDataset failed: %v", err)
	}
	if err := ds.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return ds
}

func TestCategorical(t *testing.T) {
	ds := initializedDataset(t, []string{"0", "2", "1"}, []float64{3, 4, 5})

	windows, onehot, weights, err := ds.Categorical(0)
	if err != nil {
		t.Fatalf("Categorical failed: %v", err)
	}
	if len(windows) != 3 || len(weights) != 3 {
		t.Fatalf("unexpected lengths: %d windows %d weights", len(windows), len(weights))
	}
	want := [][]float64{
		{1, 0, 0},
		{0, 0, 1},
		{0, 1, 0},
	}
	if !reflect.DeepEqual(onehot, want) {
		t.Fatalf("one-hot mismatch:\ngot  %v\nwant %v", onehot, want)
	}
}

func TestCategorical_ExplicitWidth(t *testing.T) {
	ds := initializedDataset(t, []string{"0", "1"}, []float64{3, 4})

	_, onehot, _, err := ds.Categorical(5)
	if err != nil {
		t.Fatalf("Categorical failed: %v", err)
	}
	if len(onehot[0]) != 5 {
		t.Fatalf("expected width 5, got %d", len(onehot[0]))
	}
}

func TestCategorical_BadLabels(t *testing.T) {
	ds := initializedDataset(t, []string{"0", "walk"}, []float64{3, 4})
	if _, _, _, err := ds.Categorical(0); !errors.Is(err, ErrBadLabel) {
		t.Fatalf("expected ErrBadLabel for non-integer label, got %v", err)
	}

	// Label value beyond the one-hot width.
	ds = initializedDataset(t, []string{"0", "9"}, []float64{3, 4})
	if _, _, _, err := ds.Categorical(2); !errors.Is(err, ErrBadLabel) {
		t.Fatalf("expected ErrBadLabel for out-of-range label, got %v", err)
	}

	// Negative labels are never valid indices.
	ds = initializedDataset(t, []string{"-1", "0"}, []float64{3, 4})
	if _, _, _, err := ds.Categorical(0); !errors.Is(err, ErrBadLabel) {
		t.Fatalf("expected ErrBadLabel for negative label, got %v", err)
	}
}

func TestMakeWindowBatchFlat(t *testing.T) {
	windows := [][][]float64{
		{{1, 2}, {3, 4}},
		{{5, 6}, {7, 8}},
	}
	onehot := [][]float64{{1, 0, 0}, {0, 1, 0}}

	batch, err := MakeWindowBatchFlat(windows, onehot)
	if err != nil {
		t.Fatalf("MakeWindowBatchFlat failed: %v", err)
	}
	if batch.BatchSize != 2 || batch.WindowLen != 2 || batch.NumFeatures != 2 || batch.NumClasses != 3 {
		t.Fatalf("unexpected shape: %+v", batch)
	}
	if !reflect.DeepEqual(batch.Inputs, []float64{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("flat inputs mismatch: %v", batch.Inputs)
	}
	if !reflect.DeepEqual(batch.Labels, []float64{1, 0, 0, 0, 1, 0}) {
		t.Fatalf("flat labels mismatch: %v", batch.Labels)
	}
}

func TestMakeWindowBatchFlat_Inconsistent(t *testing.T) {
	if _, err := MakeWindowBatchFlat([][][]float64{{{1}}}, [][]float64{{1}, {0}}); err == nil {
		t.Fatalf("expected error for batch size mismatch")
	}
	if _, err := MakeWindowBatchFlat(
		[][][]float64{{{1}, {2}}, {{3}}},
		[][]float64{{1}, {0}},
	); err == nil {
		t.Fatalf("expected error for inconsistent window length")
	}
	if _, err := MakeWindowBatchFlat(
		[][][]float64{{{1, 2}}, {{3}}},
		[][]float64{{1}, {0}},
	); err == nil {
		t.Fatalf("expected error for inconsistent feature width")
	}
}

func TestMakeWindowBatchFlat_Empty(t *testing.T) {
	batch, err := MakeWindowBatchFlat(nil, nil)
	if err != nil {
		t.Fatalf("MakeWindowBatchFlat failed on empty batch: %v", err)
	}
	if batch.BatchSize != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}
