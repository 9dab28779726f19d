package main

// Example command that demonstrates the full pipeline: generate a synthetic
// recording, align windows against its label timestamps, and convert a small
// batch into gomlx tensors using the helpers provided in the package.
//
// Usage:
//   go run ./example

import (
	"fmt"
	"log"
	"os"

	"github.com/bitvane/chronofeed/datasets"
	"github.com/bitvane/chronofeed/synth"
)

func main() {
	dir, err := os.MkdirTemp("", "chronofeed-example")
	if err != nil {
		log.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	gen, err := synth.New(synth.Generator{Duration: 30, DropRate: 0.1}, 1)
	if err != nil {
		log.Fatalf("failed to build generator: %v", err)
	}
	if err := gen.WriteGroup(dir, "demo_"); err != nil {
		log.Fatalf("failed to write demo group: %v", err)
	}

	ds, err := datasets.NewWindowDataset(
		[]datasets.FileGroup{datasets.Group(dir, "demo_")},
		datasets.Config{
			Spec: datasets.WindowSpec{
				Offsets: datasets.EvenOffsets(5, 0.1),
				Skip:    1,
				Stride:  1,
			},
			BatchSize: 4,
			Shuffle:   true,
			Balancer:  datasets.NewRandomOverSampler(0.5, 1),
			Tolerance: 1e-6,
			Seed:      1,
		})
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}
	if err := ds.Initialize(); err != nil {
		log.Fatalf("failed to initialize dataset: %v", err)
	}

	fmt.Printf("Windows: %d (window length %d, %d features)\n", ds.Len(), ds.WindowLen(), ds.NumFeatures())
	fmt.Printf("Classes: %v histogram: %v\n", ds.Classes(), ds.Histogram())
	fmt.Printf("Zero-row fraction (alignment misses): %.3f\n", ds.ZeroRowFraction())

	// Stream a couple of batches through the cursor.
	for b := 0; b < 2; b++ {
		windows, labels := ds.NextBatch()
		fmt.Printf("Batch %d: %d windows, labels %v\n", b, len(windows), labels)
	}

	// Convert the first few windows into gomlx tensors.
	n := min(4, ds.Len())
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	inputs, labels, err := ds.Tensors(indices)
	if err != nil {
		log.Fatalf("failed to build tensors: %v", err)
	}
	fmt.Printf("Input tensor shape: %v\n", inputs.Shape())
	fmt.Printf("One-hot label tensor shape: %v\n", labels.Shape())
}
