// Package synth generates synthetic sensor recordings in the file-group
// layout consumed by the datasets package: a feature table, its timestamp
// column, and a label column with its own timestamp column. Recordings are
// deterministic under a fixed seed, which makes them usable both as demo
// input for cmd/stream and as fixtures in integration tests.
package synth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Generator describes one synthetic recording. All tunables are exported so
// drivers can adjust them directly or from a config file.
type Generator struct {
	// NFeatures is the number of feature channels per sample (default 4).
	NFeatures int

	// SampleEvery is the feature sampling interval in time units (default 0.1).
	SampleEvery float64

	// Duration is the total recording length in time units (default 60).
	Duration float64

	// LabelEvery is the label interval in time units. It should be a multiple
	// of SampleEvery so labels land on the sampling grid (default 1.0).
	LabelEvery float64

	// Classes is the number of label classes; labels are the class indices
	// "0".."Classes-1" written as text (default 3).
	Classes int

	// Noise is the standard deviation of the Gaussian noise added to each
	// channel (default 0.05).
	Noise float64

	// DropRate is the probability that a feature sample is missing from the
	// recording, producing alignment misses downstream (default 0).
	DropRate float64

	rng *rand.Rand
}

// Recording is one generated dataset: a feature table aligned 1:1 with its
// timestamps, and labels aligned 1:1 with theirs.
type Recording struct {
	Features     [][]float64
	FeatureTimes []float64
	Labels       []string
	LabelTimes   []float64
}

// New validates the tunables, fills in defaults and seeds the generator. A
// zero seed uses the wall clock.
func New(g Generator, seed int64) (*Generator, error) {
	if g.NFeatures == 0 {
		g.NFeatures = 4
	}
	if g.SampleEvery == 0 {
		g.SampleEvery = 0.1
	}
	if g.Duration == 0 {
		g.Duration = 60
	}
	if g.LabelEvery == 0 {
		g.LabelEvery = 1.0
	}
	if g.Classes == 0 {
		g.Classes = 3
	}
	if g.Noise == 0 {
		g.Noise = 0.05
	}

	if g.NFeatures < 1 {
		return nil, fmt.Errorf("NFeatures must be >= 1, got %d", g.NFeatures)
	}
	if g.SampleEvery <= 0 || g.Duration <= 0 || g.LabelEvery <= 0 {
		return nil, errors.New("SampleEvery, Duration and LabelEvery must be positive")
	}
	if g.LabelEvery < g.SampleEvery {
		return nil, fmt.Errorf("LabelEvery %v must not be below SampleEvery %v", g.LabelEvery, g.SampleEvery)
	}
	if g.Classes < 2 {
		return nil, fmt.Errorf("Classes must be >= 2, got %d", g.Classes)
	}
	if g.DropRate < 0 || g.DropRate >= 1 {
		return nil, fmt.Errorf("DropRate %v outside [0, 1)", g.DropRate)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	g.rng = rand.New(rand.NewSource(seed))
	return &g, nil
}

// channel returns the clean value of feature channel c at time t: a sinusoid
// whose frequency and phase vary per channel, plus a slow drift.
func (g *Generator) channel(c int, t float64) float64 {
	freq := 0.05 * float64(c+1)
	phase := float64(c) * math.Pi / float64(g.NFeatures)
	return math.Sin(2*math.Pi*freq*t+phase) + 0.1*math.Cos(0.01*t)
}

// classAt derives the label at time t from the clean signal: the index of the
// strongest channel among the first Classes channels (channels wrap when
// NFeatures < Classes). The rule only looks at the signal, so a classifier
// seeing the surrounding window can recover it.
func (g *Generator) classAt(t float64) int {
	best := 0
	bestVal := math.Inf(-1)
	for k := 0; k < g.Classes; k++ {
		v := g.channel(k%g.NFeatures, t) + 0.001*float64(k)
		if v > bestVal {
			bestVal = v
			best = k
		}
	}
	return best
}

// Generate builds the recording: features on a regular grid with per-sample
// noise, rows dropped at DropRate, and labels on the LabelEvery subgrid.
// Label timestamps always stay, even when the feature row at the same time
// was dropped.
func (g *Generator) Generate() *Recording {
	rec := &Recording{}

	steps := int(math.Floor(g.Duration/g.SampleEvery)) + 1
	for i := 0; i < steps; i++ {
		t := float64(i) * g.SampleEvery
		if g.DropRate > 0 && g.rng.Float64() < g.DropRate {
			continue
		}
		row := make([]float64, g.NFeatures)
		for c := range row {
			row[c] = g.channel(c, t) + g.rng.NormFloat64()*g.Noise
		}
		rec.Features = append(rec.Features, row)
		rec.FeatureTimes = append(rec.FeatureTimes, t)
	}

	// Labels start one interval in so backward-looking windows have history.
	for t := g.LabelEvery; t <= g.Duration; t += g.LabelEvery {
		rec.Labels = append(rec.Labels, strconv.Itoa(g.classAt(t)))
		rec.LabelTimes = append(rec.LabelTimes, t)
	}
	return rec
}

// WriteGroup generates a recording and writes it as the four conventional
// CSV files {prefix}x.csv, {prefix}y.csv, {prefix}x_time.csv and
// {prefix}y_time.csv inside dir.
func (g *Generator) WriteGroup(dir, prefix string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	rec := g.Generate()

	if err := writeMatrixCSV(filepath.Join(dir, prefix+"x.csv"), rec.Features); err != nil {
		return err
	}
	if err := writeColumnCSV(filepath.Join(dir, prefix+"x_time.csv"), rec.FeatureTimes); err != nil {
		return err
	}
	if err := writeStringsCSV(filepath.Join(dir, prefix+"y.csv"), rec.Labels); err != nil {
		return err
	}
	return writeColumnCSV(filepath.Join(dir, prefix+"y_time.csv"), rec.LabelTimes)
}

func writeMatrixCSV(path string, rows [][]float64) error {
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		records[i] = rec
	}
	return writeCSV(path, records)
}

func writeColumnCSV(path string, values []float64) error {
	records := make([][]string, len(values))
	for i, v := range values {
		records[i] = []string{strconv.FormatFloat(v, 'g', -1, 64)}
	}
	return writeCSV(path, records)
}

func writeStringsCSV(path string, values []string) error {
	records := make([][]string, len(values))
	for i, v := range values {
		records[i] = []string{v}
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
