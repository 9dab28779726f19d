package datasets

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Config carries the tunables of a WindowDataset.
type Config struct {
	// Spec lays out the windows to extract. Required.
	Spec WindowSpec

	// BatchSize used by NextBatch and Yield. Defaults to 1.
	BatchSize int

	// Shuffle permutes windows and labels jointly after loading.
	Shuffle bool

	// Balancer resamples the class distribution after shuffling. Nil means no
	// resampling; it is ignored for unlabeled datasets.
	Balancer Balancer

	// Tolerance for timestamp matching. Non-positive selects
	// DefaultTolerance.
	Tolerance float64

	// Seed drives shuffling. Zero seeds from the wall clock.
	Seed int64

	// NLabels is an optional capacity hint for the number of windows across
	// all groups. Purely an allocation hint; the dataset grows past it as
	// needed.
	NLabels int
}

// WindowDataset aligns windowed feature history against label timestamps and
// serves the result as training batches. Build one with NewWindowDataset,
// then call Initialize to load, align, shuffle and balance the data. The
// dataset is not safe for concurrent use.
type WindowDataset struct {
	groups  []FileGroup
	cfg     Config
	aligner *Aligner
	rng     *rand.Rand

	windows       [][][]float64
	labels        []string
	classes       []string
	histogram     map[string]int
	classWeights  []float64
	sampleWeights []float64
	numFeatures   int
	cursor        int
}

var _ Dataset = (*WindowDataset)(nil)

// NewWindowDataset validates the configuration and builds an empty dataset
// over the given file groups. No file is touched until Initialize.
func NewWindowDataset(groups []FileGroup, cfg Config) (*WindowDataset, error) {
	if err := cfg.Spec.validate(); err != nil {
		return nil, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if cfg.NLabels < 0 {
		cfg.NLabels = 0
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &WindowDataset{
		groups:  groups,
		cfg:     cfg,
		aligner: NewAligner(cfg.Tolerance),
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

// Initialize loads every file group, aligns each group independently against
// its own label timestamps, concatenates the aligned windows, then applies
// the optional shuffle and balancer and derives class statistics. A second
// call rebuilds everything from disk; the shuffle permutation continues from
// the dataset's random stream rather than repeating.
func (d *WindowDataset) Initialize() error {
	if len(d.groups) == 0 {
		return fmt.Errorf("%w: no file groups", ErrConfig)
	}
	labeled := d.groups[0].Labeled()
	for _, g := range d.groups {
		if err := g.validate(labeled); err != nil {
			return err
		}
	}

	windows := make([][][]float64, 0, d.cfg.NLabels)
	var labels []string
	if labeled {
		labels = make([]string, 0, d.cfg.NLabels)
	}
	d.numFeatures = 0

	for _, g := range d.groups {
		features, err := ReadMatrix(g.X)
		if err != nil {
			return err
		}
		if len(features) == 0 {
			return fmt.Errorf("%w: %s holds no feature rows", ErrShapeMismatch, g.X)
		}
		if d.numFeatures == 0 {
			d.numFeatures = len(features[0])
		} else if len(features[0]) != d.numFeatures {
			return fmt.Errorf("%w: %s has %d feature columns, want %d",
				ErrShapeMismatch, g.X, len(features[0]), d.numFeatures)
		}
		featureTimes, err := ReadColumn(g.XTime)
		if err != nil {
			return err
		}
		if len(features) != len(featureTimes) {
			return fmt.Errorf("%w: %s has %d rows but %s has %d timestamps",
				ErrShapeMismatch, g.X, len(features), g.XTime, len(featureTimes))
		}
		labelTimes, err := ReadColumn(g.YTime)
		if err != nil {
			return err
		}
		if labeled {
			groupLabels, err := ReadLabels(g.Y)
			if err != nil {
				return err
			}
			if len(groupLabels) != len(labelTimes) {
				return fmt.Errorf("%w: %s has %d labels but %s has %d timestamps",
					ErrShapeMismatch, g.Y, len(groupLabels), g.YTime, len(labelTimes))
			}
			labels = append(labels, groupLabels...)
		}
		groupWindows, err := d.aligner.Align(features, featureTimes, labelTimes, d.cfg.Spec)
		if err != nil {
			return err
		}
		windows = append(windows, groupWindows...)
	}

	if labeled && len(labels) != len(windows) {
		return fmt.Errorf("%w: %d windows vs %d labels after loading", ErrConfig, len(windows), len(labels))
	}

	if d.cfg.Shuffle {
		perm := d.rng.Perm(len(windows))
		shuffled := make([][][]float64, len(windows))
		for i, p := range perm {
			shuffled[i] = windows[p]
		}
		windows = shuffled
		if labeled {
			shuffledLabels := make([]string, len(labels))
			for i, p := range perm {
				shuffledLabels[i] = labels[p]
			}
			labels = shuffledLabels
		}
	}

	if labeled && d.cfg.Balancer != nil {
		balancedWindows, balancedLabels, err := d.cfg.Balancer.Balance(windows, labels)
		if err != nil {
			return fmt.Errorf("balancer: %w", err)
		}
		if len(balancedWindows) != len(balancedLabels) {
			return fmt.Errorf("%w: balancer returned %d windows for %d labels",
				ErrConfig, len(balancedWindows), len(balancedLabels))
		}
		windows, labels = balancedWindows, balancedLabels
	}

	d.windows = windows
	d.labels = nil
	d.classes = nil
	d.histogram = nil
	d.classWeights = nil
	d.sampleWeights = nil
	if labeled {
		d.labels = labels
		d.refreshStats()
	}
	d.cursor = 0
	return nil
}

// refreshStats recomputes the class list, histogram and balanced weights
// from the current labels. Weights describe the distribution after any
// balancing, not the raw files.
func (d *WindowDataset) refreshStats() {
	d.histogram = make(map[string]int)
	for _, label := range d.labels {
		d.histogram[label]++
	}
	d.classes, d.classWeights = BalancedClassWeights(d.labels)
	d.sampleWeights = BalancedSampleWeights(d.labels)
}

// Len returns the number of windows currently loaded.
func (d *WindowDataset) Len() int { return len(d.windows) }

// NumFeatures returns the width of one feature row.
func (d *WindowDataset) NumFeatures() int { return d.numFeatures }

// WindowLen returns the number of rows in one window.
func (d *WindowDataset) WindowLen() int { return d.cfg.Spec.Len() }

// InputDim returns the flattened size of one window, WindowLen*NumFeatures.
func (d *WindowDataset) InputDim() int { return d.cfg.Spec.Len() * d.numFeatures }

// Labeled reports whether the dataset carries labels.
func (d *WindowDataset) Labeled() bool { return d.labels != nil }

// Classes returns the distinct labels in lexicographic order. The returned
// slice is a view, not a copy.
func (d *WindowDataset) Classes() []string { return d.classes }

// NumClasses returns the number of distinct labels.
func (d *WindowDataset) NumClasses() int { return len(d.classes) }

// Labels returns the label of every window, post shuffle and balance. The
// returned slice is a view, not a copy.
func (d *WindowDataset) Labels() []string { return d.labels }

// Histogram returns the per-class window counts, post shuffle and balance.
func (d *WindowDataset) Histogram() map[string]int { return d.histogram }

// ClassWeights returns the balanced weight of each class, ordered like
// Classes.
func (d *WindowDataset) ClassWeights() []float64 { return d.classWeights }

// SampleWeights returns the balanced weight of every window, ordered like
// Labels.
func (d *WindowDataset) SampleWeights() []float64 { return d.sampleWeights }

// NextBatch returns the next BatchSize windows and their labels, advancing
// the cursor. The cursor always advances by a full BatchSize, so the batch
// straddling the end of the data comes back short and later calls come back
// empty until Restart. Labels are nil for unlabeled datasets. The returned
// slices are views into the dataset.
func (d *WindowDataset) NextBatch() ([][][]float64, []string) {
	start := d.cursor
	end := d.cursor + d.cfg.BatchSize
	d.cursor += d.cfg.BatchSize
	if start > len(d.windows) {
		start = len(d.windows)
	}
	if end > len(d.windows) {
		end = len(d.windows)
	}
	if d.labels == nil {
		return d.windows[start:end], nil
	}
	return d.windows[start:end], d.labels[start:end]
}

// Example returns window i and its label. The label is empty for unlabeled
// datasets.
func (d *WindowDataset) Example(i int) ([][]float64, string, error) {
	if i < 0 || i >= len(d.windows) {
		return nil, "", fmt.Errorf("index %d out of range [0, %d)", i, len(d.windows))
	}
	label := ""
	if d.labels != nil {
		label = d.labels[i]
	}
	return d.windows[i], label, nil
}

// Batch gathers the windows and labels at the given indices.
func (d *WindowDataset) Batch(indices []int) ([][][]float64, []string, error) {
	windows := make([][][]float64, len(indices))
	var labels []string
	if d.labels != nil {
		labels = make([]string, len(indices))
	}
	for pos, idx := range indices {
		window, label, err := d.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		windows[pos] = window
		if labels != nil {
			labels[pos] = label
		}
	}
	return windows, labels, nil
}

// classID converts a label to the class index used for training: its integer
// value, bounds-checked against the number of classes. Labels in this
// pipeline are expected to be the class indices 0..k-1 written as text.
func (d *WindowDataset) classID(label string) (int, error) {
	id, err := labelIndex(label)
	if err != nil {
		return 0, err
	}
	if id < 0 || id >= len(d.classes) {
		return 0, fmt.Errorf("%w: class %d outside [0, %d)", ErrBadLabel, id, len(d.classes))
	}
	return id, nil
}

// FlatBatch gathers the windows at the given indices flattened row-major into
// vectors, along with integer class ids and balanced sample weights. This is
// the form consumed by the simple trainer.
func (d *WindowDataset) FlatBatch(indices []int) (inputs [][]float64, classes []int, weights []float64, err error) {
	if d.labels == nil {
		return nil, nil, nil, fmt.Errorf("%w: dataset has no labels", ErrConfig)
	}
	inputs = make([][]float64, len(indices))
	classes = make([]int, len(indices))
	weights = make([]float64, len(indices))
	dim := d.InputDim()
	for pos, idx := range indices {
		window, label, err := d.Example(idx)
		if err != nil {
			return nil, nil, nil, err
		}
		flat := make([]float64, 0, dim)
		for _, row := range window {
			flat = append(flat, row...)
		}
		inputs[pos] = flat
		id, err := d.classID(label)
		if err != nil {
			return nil, nil, nil, err
		}
		classes[pos] = id
		weights[pos] = d.sampleWeights[idx]
	}
	return inputs, classes, weights, nil
}

// Name returns the name of the dataset.
func (d *WindowDataset) Name() string {
	return "WindowDataset"
}

// Restart rewinds the batch cursor to the beginning for a new epoch. The data
// itself is untouched; call Initialize to reload and reshuffle.
func (d *WindowDataset) Restart() error {
	d.cursor = 0
	return nil
}

// Yield returns the next batch as gomlx tensors: a [batch, windowLen,
// numFeatures] input tensor and, for labeled datasets, a [batch] int32 class
// id tensor. It returns io.EOF once the cursor has passed the end of the
// data, which signals the end of the epoch to gomlx-style training loops.
func (d *WindowDataset) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	windows, batchLabels := d.NextBatch()
	if len(windows) == 0 {
		return nil, nil, nil, io.EOF
	}
	in := tensors.FromAnyValue(windows)
	if batchLabels == nil {
		return nil, []*tensors.Tensor{in}, nil, nil
	}
	ids := make([]int32, len(batchLabels))
	for i, label := range batchLabels {
		id, err := d.classID(label)
		if err != nil {
			return nil, nil, nil, err
		}
		ids[i] = int32(id)
	}
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{tensors.FromAnyValue(ids)}, nil
}
