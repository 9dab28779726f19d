package datasets

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary statistics over an aligned dataset. These are diagnostics for
// inspecting what the alignment produced before committing to a training run;
// none of them feed back into the pipeline.

// ChannelStats returns the mean and standard deviation of every feature
// channel, computed across all rows of all windows. Zero-filled rows from
// unmatched window positions are included, so sparse data pulls the means
// toward zero.
func (d *WindowDataset) ChannelStats() (means, stds []float64) {
	means = make([]float64, d.numFeatures)
	stds = make([]float64, d.numFeatures)
	if len(d.windows) == 0 {
		return means, stds
	}
	buf := make([]float64, 0, len(d.windows)*d.WindowLen())
	for c := range d.numFeatures {
		buf = buf[:0]
		for _, window := range d.windows {
			for _, row := range window {
				buf = append(buf, row[c])
			}
		}
		means[c], stds[c] = stat.MeanStdDev(buf, nil)
	}
	return means, stds
}

// ZeroRowFraction returns the fraction of window rows that are entirely
// zero. Unmatched window positions are zero-filled, so on data without
// genuine all-zero samples this is the miss rate of the alignment.
func (d *WindowDataset) ZeroRowFraction() float64 {
	total := 0
	zeros := 0
	for _, window := range d.windows {
		for _, row := range window {
			total++
			if isZeroRow(row) {
				zeros++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(zeros) / float64(total)
}

func isZeroRow(row []float64) bool {
	for _, v := range row {
		if v != 0 {
			return false
		}
	}
	return true
}

// ClassCounts returns the per-class window counts ordered like Classes, in a
// form ready for plotting. The counts sum to Len for labeled datasets.
func (d *WindowDataset) ClassCounts() []float64 {
	counts := make([]float64, len(d.classes))
	for j, class := range d.classes {
		counts[j] = float64(d.histogram[class])
	}
	return counts
}

// WeightSum returns the total balanced sample weight, which equals the
// number of samples up to rounding.
func (d *WindowDataset) WeightSum() float64 {
	return floats.Sum(d.sampleWeights)
}
