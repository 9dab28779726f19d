package datasets

import (
	"errors"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// This package loads time-series feature logs from delimited files, aligns
// fixed-width windows of historical feature vectors against label timestamps,
// and streams the result as batches suitable for classifier training.
//
// The moving parts, leaf first:
//
//   - WindowSpec describes how a window is laid out relative to a label
//     timestamp: the time offsets to sample, and how the search position
//     advances inside a window and between labels.
//   - Aligner performs the tolerance-bounded time-join between the feature
//     series and the label timestamps, zero-filling positions that have no
//     sample within tolerance.
//   - Balancer is a pluggable resampling capability; RandomOverSampler and
//     RandomUnderSampler are provided, and any strategy satisfying the
//     interface plugs in the same way.
//   - WindowDataset orchestrates the pipeline: it reads one or more file
//     groups, aligns each group independently, concatenates the results,
//     optionally shuffles and balances them, derives class statistics and
//     weights, and serves sequential batches through a cursor.
//
// Batches convert into gomlx tensors through the BatchFlat helpers, and
// WindowDataset exposes the Yield/Restart pair used by gomlx-style training
// loops. All data is held in memory; the package is meant for log files that
// fit comfortably in RAM, not for unbounded streams.
//
// WindowDataset implements this interface. It mirrors the shape of gomlx's
// train.Dataset so a dataset can be handed to a training loop without an
// adapter.
type Dataset interface {
	Len() int
	Example(i int) (window [][]float64, label string, err error)
	Batch(indices []int) (windows [][][]float64, labels []string, err error)

	// To interact with gomlx training loops and batching utilities.
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Restart() error
}

// Error taxonomy of the package. I/O failures are returned wrapped around the
// underlying os or csv error; everything else wraps one of these sentinels so
// callers can branch with errors.Is.
var (
	// ErrShapeMismatch reports tables whose dimensions disagree: feature rows
	// vs feature timestamps, labels vs label timestamps, ragged rows inside
	// one file, or a feature file whose row width differs from the first
	// loaded file.
	ErrShapeMismatch = errors.New("datasets: shape mismatch")

	// ErrConfig reports an invalid window spec, file group set, or balancer
	// output.
	ErrConfig = errors.New("datasets: invalid configuration")

	// ErrBadLabel reports a label value that is not representable as an
	// integer class index.
	ErrBadLabel = errors.New("datasets: label is not an integer class index")
)
