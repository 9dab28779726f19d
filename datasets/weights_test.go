package datasets

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/floats"
)

func TestBalancedClassWeights(t *testing.T) {
	labels := []string{"1", "0", "0", "0", "1", "2"}

	classes, weights := BalancedClassWeights(labels)
	require.Equal(t, []string{"0", "1", "2"}, classes)

	// n/(k*count): 6/(3*3), 6/(3*2), 6/(3*1)
	assert.InDeltaSlice(t, []float64{2.0 / 3.0, 1.0, 2.0}, weights, 1e-12)
}

func TestBalancedSampleWeights(t *testing.T) {
	labels := []string{"1", "0", "0", "0", "1", "2"}

	weights := BalancedSampleWeights(labels)
	require.Len(t, weights, len(labels))
	assert.InDeltaSlice(t, []float64{1.0, 2.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0, 1.0, 2.0}, weights, 1e-12)

	// Every class contributes the same total weight, and the overall sum is n.
	assert.InDelta(t, float64(len(labels)), floats.Sum(weights), 1e-9)
}

// The weight sum only depends on the class frequency distribution, never on
// the label order.
func TestBalancedSampleWeights_OrderInvariant(t *testing.T) {
	labels := []string{"0", "0", "0", "1", "1", "2", "2", "2", "2", "3"}
	sum := floats.Sum(BalancedSampleWeights(labels))

	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 5; trial++ {
		shuffled := append([]string(nil), labels...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		assert.InDelta(t, sum, floats.Sum(BalancedSampleWeights(shuffled)), 1e-9)
	}
}

func TestBalancedWeights_Empty(t *testing.T) {
	classes, weights := BalancedClassWeights(nil)
	assert.Empty(t, classes)
	assert.Empty(t, weights)
	assert.Empty(t, BalancedSampleWeights(nil))
}

func TestBalancedWeights_SingleClass(t *testing.T) {
	labels := []string{"7", "7", "7"}

	classes, weights := BalancedClassWeights(labels)
	require.Equal(t, []string{"7"}, classes)
	assert.Equal(t, []float64{1.0}, weights)
	assert.Equal(t, []float64{1, 1, 1}, BalancedSampleWeights(labels))
}
