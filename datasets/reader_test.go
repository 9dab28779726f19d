package datasets

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeCSV writes a headerless CSV file at path, one row per string.
func writeCSV(t *testing.T, path string, rows []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create csv %s: %v", path, err)
	}
	defer f.Close()

	for _, r := range rows {
		if _, err := f.WriteString(r + "\n"); err != nil {
			t.Fatalf("failed to write row: %v", err)
		}
	}
}

func TestReadMatrix(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "x.csv")
	writeCSV(t, path, []string{
		"1.5,2.5,3.5",
		"4,5,6",
		"-7.25, 8 ,9e2",
	})

	rows, err := ReadMatrix(path)
	if err != nil {
		t.Fatalf("ReadMatrix failed: %v", err)
	}
	want := [][]float64{
		{1.5, 2.5, 3.5},
		{4, 5, 6},
		{-7.25, 8, 900},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("ReadMatrix mismatch: got %v want %v", rows, want)
	}
}

func TestReadMatrix_RaggedRows(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "ragged.csv")
	writeCSV(t, path, []string{
		"1,2,3",
		"4,5",
	})

	_, err := ReadMatrix(path)
	if err == nil {
		t.Fatalf("expected error for ragged rows, got nil")
	}
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestReadMatrix_BadValue(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "bad.csv")
	writeCSV(t, path, []string{
		"1,2",
		"3,oops",
	})

	if _, err := ReadMatrix(path); err == nil {
		t.Fatalf("expected parse error for non-numeric field, got nil")
	}
}

func TestReadMatrix_MissingFile(t *testing.T) {
	tmp := t.TempDir()

	if _, err := ReadMatrix(filepath.Join(tmp, "nope.csv")); err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}

func TestReadColumn(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "t.csv")
	writeCSV(t, path, []string{"0", "0.5", "1.0", "1.5"})

	values, err := ReadColumn(path)
	if err != nil {
		t.Fatalf("ReadColumn failed: %v", err)
	}
	want := []float64{0, 0.5, 1.0, 1.5}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("ReadColumn mismatch: got %v want %v", values, want)
	}
}

func TestReadColumn_MultipleColumns(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "wide.csv")
	writeCSV(t, path, []string{"0,1"})

	_, err := ReadColumn(path)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for two columns, got %v", err)
	}
}

func TestReadLabels(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "y.csv")
	writeCSV(t, path, []string{"1", " 0 ", "2"})

	labels, err := ReadLabels(path)
	if err != nil {
		t.Fatalf("ReadLabels failed: %v", err)
	}
	// surrounding whitespace is trimmed, values kept verbatim otherwise
	want := []string{"1", "0", "2"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("ReadLabels mismatch: got %v want %v", labels, want)
	}
}

func TestReadMatrix_EmptyFile(t *testing.T) {
	tmp := t.TempDir()

	path := filepath.Join(tmp, "empty.csv")
	writeCSV(t, path, nil)

	rows, err := ReadMatrix(path)
	if err != nil {
		t.Fatalf("ReadMatrix on empty file failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows from empty file, got %d", len(rows))
	}
}
