package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Categorical returns the whole dataset in training form: every window, a
// one-hot label matrix and the balanced sample weights. The one-hot column of
// a label is its integer value, so labels must be the class indices written
// as text; anything else is ErrBadLabel. nClasses fixes the one-hot width,
// with zero meaning the number of distinct labels.
func (d *WindowDataset) Categorical(nClasses int) (windows [][][]float64, onehot [][]float64, weights []float64, err error) {
	if d.labels == nil {
		return nil, nil, nil, fmt.Errorf("%w: dataset has no labels", ErrConfig)
	}
	if nClasses <= 0 {
		nClasses = len(d.classes)
	}
	onehot = make([][]float64, len(d.labels))
	for i, label := range d.labels {
		id, err := labelIndex(label)
		if err != nil {
			return nil, nil, nil, err
		}
		if id < 0 || id >= nClasses {
			return nil, nil, nil, fmt.Errorf("%w: class %d outside [0, %d)", ErrBadLabel, id, nClasses)
		}
		row := make([]float64, nClasses)
		row[id] = 1
		onehot[i] = row
	}
	return d.windows, onehot, d.sampleWeights, nil
}

// WindowBatchFlat stores a batch in flat contiguous buffers along with its
// shape, ready for tensor conversion.
type WindowBatchFlat struct {
	Inputs      []float64
	Labels      []float64
	BatchSize   int
	WindowLen   int
	NumFeatures int
	NumClasses  int
}

// MakeWindowBatchFlat flattens a batch of windows and one-hot labels into
// contiguous buffers, checking that every window and label has consistent
// dimensions.
func MakeWindowBatchFlat(windows [][][]float64, onehot [][]float64) (*WindowBatchFlat, error) {
	if len(windows) != len(onehot) {
		return nil, fmt.Errorf("windows and labels batch sizes don't match: %d != %d", len(windows), len(onehot))
	}
	if len(windows) == 0 {
		return &WindowBatchFlat{}, nil
	}

	batchSize := len(windows)
	windowLen := len(windows[0])
	numFeatures := 0
	if windowLen > 0 {
		numFeatures = len(windows[0][0])
	}
	numClasses := len(onehot[0])

	flatInputs := make([]float64, 0, batchSize*windowLen*numFeatures)
	flatLabels := make([]float64, 0, batchSize*numClasses)
	for i := range batchSize {
		if len(windows[i]) != windowLen {
			return nil, fmt.Errorf("inconsistent window length at example %d: expected %d, got %d",
				i, windowLen, len(windows[i]))
		}
		for j, row := range windows[i] {
			if len(row) != numFeatures {
				return nil, fmt.Errorf("inconsistent feature width at example %d row %d: expected %d, got %d",
					i, j, numFeatures, len(row))
			}
			flatInputs = append(flatInputs, row...)
		}
		if len(onehot[i]) != numClasses {
			return nil, fmt.Errorf("inconsistent label width at example %d: expected %d, got %d",
				i, numClasses, len(onehot[i]))
		}
		flatLabels = append(flatLabels, onehot[i]...)
	}

	return &WindowBatchFlat{
		Inputs:      flatInputs,
		Labels:      flatLabels,
		BatchSize:   batchSize,
		WindowLen:   windowLen,
		NumFeatures: numFeatures,
		NumClasses:  numClasses,
	}, nil
}

// ToGomlxTensors converts the flat buffers into gomlx tensors shaped
// [batch, windowLen, numFeatures] and [batch, numClasses].
func (b *WindowBatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	// handle empty batch gracefully
	if b.BatchSize == 0 || b.WindowLen == 0 || b.NumFeatures == 0 || b.NumClasses == 0 {
		emptyInputs := make([][][]float64, 0)
		emptyLabels := make([][]float64, 0)
		return tensors.FromAnyValue(emptyInputs), tensors.FromAnyValue(emptyLabels), nil
	}
	inputs := make([][][]float64, b.BatchSize)
	labels := make([][]float64, b.BatchSize)
	rowsPerExample := b.WindowLen
	for i := range b.BatchSize {
		window := make([][]float64, rowsPerExample)
		for j := range rowsPerExample {
			offset := (i*rowsPerExample + j) * b.NumFeatures
			window[j] = b.Inputs[offset : offset+b.NumFeatures]
		}
		inputs[i] = window
		labels[i] = b.Labels[i*b.NumClasses : (i+1)*b.NumClasses]
	}
	return tensors.FromAnyValue(inputs), tensors.FromAnyValue(labels), nil
}

// Tensors converts the windows and one-hot labels at the given indices into
// gomlx tensors. The one-hot width is the number of distinct classes.
func (d *WindowDataset) Tensors(indices []int) (*tensors.Tensor, *tensors.Tensor, error) {
	windows, batchLabels, err := d.Batch(indices)
	if err != nil {
		return nil, nil, err
	}
	if batchLabels == nil {
		return nil, nil, fmt.Errorf("%w: dataset has no labels", ErrConfig)
	}
	onehot := make([][]float64, len(batchLabels))
	for i, label := range batchLabels {
		id, err := d.classID(label)
		if err != nil {
			return nil, nil, err
		}
		row := make([]float64, len(d.classes))
		row[id] = 1
		onehot[i] = row
	}
	batch, err := MakeWindowBatchFlat(windows, onehot)
	if err != nil {
		return nil, nil, err
	}
	return batch.ToGomlxTensors()
}
