package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadMatrix loads a headerless numeric CSV file as a rectangular table, one
// row per record. Ragged rows are reported as ErrShapeMismatch.
func ReadMatrix(path string) ([][]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var rows [][]float64
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: ragged row in %s: %v", ErrShapeMismatch, path, err)
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		row := make([]float64, len(record))
		for i, field := range record {
			val, err := parseFloat(field)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s row %d column %d: %w", path, len(rows), i, err)
			}
			row[i] = val
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadColumn loads a headerless single-column numeric CSV file, typically a
// timestamp column. A record with more than one field is ErrShapeMismatch.
func ReadColumn(path string) ([]float64, error) {
	records, err := readSingleColumn(path)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(records))
	for i, field := range records {
		val, err := parseFloat(field)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s row %d: %w", path, i, err)
		}
		values[i] = val
	}
	return values, nil
}

// ReadLabels loads a headerless single-column CSV file of raw label strings.
// Labels are kept verbatim (after trimming surrounding whitespace); turning
// them into class indices is deferred to Categorical and DumpLabels.
func ReadLabels(path string) ([]string, error) {
	return readSingleColumn(path)
}

func readSingleColumn(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	var values []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if len(record) != 1 {
			return nil, fmt.Errorf("%w: %s row %d has %d columns, want 1",
				ErrShapeMismatch, path, len(values), len(record))
		}
		values = append(values, trimField(record[0]))
	}
	return values, nil
}
