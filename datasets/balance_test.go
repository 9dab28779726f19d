package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labeledWindows builds one single-row window per label whose value encodes
// the original position, so resampled pairs can be traced back.
func labeledWindows(labels []string) [][][]float64 {
	windows := make([][][]float64, len(labels))
	for i := range labels {
		windows[i] = [][]float64{{float64(i)}}
	}
	return windows
}

// pairingIntact asserts every window still carries the label it started with.
func pairingIntact(t *testing.T, original []string, windows [][][]float64, labels []string) {
	t.Helper()
	require.Equal(t, len(windows), len(labels))
	for i := range windows {
		src := int(windows[i][0][0])
		require.Less(t, src, len(original))
		assert.Equal(t, original[src], labels[i], "pair %d lost its label", i)
	}
}

func countClasses(labels []string) map[string]int {
	counts := make(map[string]int)
	for _, label := range labels {
		counts[label]++
	}
	return counts
}

func TestRandomOverSampler(t *testing.T) {
	labels := []string{"0", "0", "0", "0", "0", "0", "0", "0", "1", "2"}
	windows := labeledWindows(labels)

	s := NewRandomOverSampler(0.5, 42)
	outWindows, outLabels, err := s.Balance(windows, labels)
	require.NoError(t, err)

	counts := countClasses(outLabels)
	// Majority has 8 members; every class must reach ceil(0.5*8) = 4.
	assert.Equal(t, 8, counts["0"])
	assert.GreaterOrEqual(t, counts["1"], 4)
	assert.GreaterOrEqual(t, counts["2"], 4)
	pairingIntact(t, labels, outWindows, outLabels)

	// Originals are retained, duplicates appended.
	assert.Equal(t, labels, outLabels[:len(labels)])
}

func TestRandomOverSampler_Deterministic(t *testing.T) {
	labels := []string{"0", "0", "0", "0", "1"}

	first, firstLabels, err := NewRandomOverSampler(1.0, 7).Balance(labeledWindows(labels), labels)
	require.NoError(t, err)
	second, secondLabels, err := NewRandomOverSampler(1.0, 7).Balance(labeledWindows(labels), labels)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstLabels, secondLabels)
}

func TestRandomOverSampler_DefaultRatio(t *testing.T) {
	s := NewRandomOverSampler(0, 1)
	assert.Equal(t, DefaultOverSampleRatio, s.Ratio)
}

func TestRandomUnderSampler(t *testing.T) {
	labels := []string{"0", "0", "0", "0", "0", "0", "0", "0", "1", "1"}
	windows := labeledWindows(labels)

	s := NewRandomUnderSampler(0.5, 42)
	outWindows, outLabels, err := s.Balance(windows, labels)
	require.NoError(t, err)

	counts := countClasses(outLabels)
	// Minority has 2 members; every class is cut to at most floor(2/0.5) = 4.
	assert.LessOrEqual(t, counts["0"], 4)
	assert.Equal(t, 2, counts["1"])
	pairingIntact(t, labels, outWindows, outLabels)

	// Surviving pairs keep their relative order.
	prev := -1
	for _, w := range outWindows {
		src := int(w[0][0])
		assert.Greater(t, src, prev)
		prev = src
	}
}

func TestRandomUnderSampler_DefaultRatio(t *testing.T) {
	s := NewRandomUnderSampler(0, 1)
	assert.Equal(t, DefaultUnderSampleRatio, s.Ratio)
}

func TestBalancers_LengthMismatch(t *testing.T) {
	labels := []string{"0", "1"}
	windows := labeledWindows([]string{"0"})

	_, _, err := NewRandomOverSampler(0.5, 1).Balance(windows, labels)
	assert.ErrorIs(t, err, ErrConfig)

	_, _, err = NewRandomUnderSampler(0.5, 1).Balance(windows, labels)
	assert.ErrorIs(t, err, ErrConfig)

	_, _, err = NopBalancer{}.Balance(windows, labels)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBalancers_BadRatio(t *testing.T) {
	labels := []string{"0", "1"}
	windows := labeledWindows(labels)

	over := NewRandomOverSampler(0.5, 1)
	over.Ratio = 1.5
	_, _, err := over.Balance(windows, labels)
	assert.ErrorIs(t, err, ErrConfig)

	under := NewRandomUnderSampler(0.5, 1)
	under.Ratio = -1
	_, _, err = under.Balance(windows, labels)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestNopBalancer(t *testing.T) {
	labels := []string{"0", "1", "0"}
	windows := labeledWindows(labels)

	outWindows, outLabels, err := NopBalancer{}.Balance(windows, labels)
	require.NoError(t, err)
	assert.Equal(t, windows, outWindows)
	assert.Equal(t, labels, outLabels)
}

func TestBalancers_EmptyInput(t *testing.T) {
	outWindows, outLabels, err := NewRandomOverSampler(0.5, 1).Balance(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, outWindows)
	assert.Empty(t, outLabels)
}
