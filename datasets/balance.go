package datasets

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Default resampling ratios, chosen for heavily skewed recordings where the
// interesting class is rare.
const (
	DefaultOverSampleRatio  = 0.1
	DefaultUnderSampleRatio = 0.5
)

// Balancer adjusts the class distribution of an aligned dataset before
// training. Implementations must keep every (window, label) pair together and
// must return slices of equal length; they may duplicate, drop or reorder
// pairs freely.
type Balancer interface {
	Balance(windows [][][]float64, labels []string) ([][][]float64, []string, error)
}

// NopBalancer returns the dataset unchanged. Useful as an explicit "no
// resampling" choice where a Balancer value is required.
type NopBalancer struct{}

func (NopBalancer) Balance(windows [][][]float64, labels []string) ([][][]float64, []string, error) {
	if len(windows) != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d windows vs %d labels", ErrConfig, len(windows), len(labels))
	}
	return windows, labels, nil
}

// RandomOverSampler duplicates random members of under-represented classes.
// After resampling every class holds at least Ratio times the majority class
// count. Duplicates reference the same window slice as the original; windows
// are never mutated after alignment, so the sharing is safe.
type RandomOverSampler struct {
	Ratio float64
	rng   *rand.Rand
}

// NewRandomOverSampler builds an over-sampler with the given ratio and seed.
// A non-positive ratio selects DefaultOverSampleRatio.
func NewRandomOverSampler(ratio float64, seed int64) *RandomOverSampler {
	if ratio <= 0 {
		ratio = DefaultOverSampleRatio
	}
	return &RandomOverSampler{Ratio: ratio, rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomOverSampler) Balance(windows [][][]float64, labels []string) ([][][]float64, []string, error) {
	if len(windows) != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d windows vs %d labels", ErrConfig, len(windows), len(labels))
	}
	if s.Ratio <= 0 || s.Ratio > 1 {
		return nil, nil, fmt.Errorf("%w: over-sample ratio %v outside (0, 1]", ErrConfig, s.Ratio)
	}
	if len(labels) == 0 {
		return windows, labels, nil
	}

	byClass := groupByClass(labels)
	majority := 0
	for _, members := range byClass {
		if len(members) > majority {
			majority = len(members)
		}
	}
	target := int(math.Ceil(s.Ratio * float64(majority)))

	outWindows := append([][][]float64(nil), windows...)
	outLabels := append([]string(nil), labels...)
	for _, class := range sortedClasses(byClass) {
		members := byClass[class]
		for n := len(members); n < target; n++ {
			pick := members[s.rng.Intn(len(members))]
			outWindows = append(outWindows, windows[pick])
			outLabels = append(outLabels, labels[pick])
		}
	}
	return outWindows, outLabels, nil
}

// RandomUnderSampler drops random members of over-represented classes until
// the rarest class holds at least Ratio times every other class count. Order
// of the surviving pairs is preserved.
type RandomUnderSampler struct {
	Ratio float64
	rng   *rand.Rand
}

// NewRandomUnderSampler builds an under-sampler with the given ratio and
// seed. A non-positive ratio selects DefaultUnderSampleRatio.
func NewRandomUnderSampler(ratio float64, seed int64) *RandomUnderSampler {
	if ratio <= 0 {
		ratio = DefaultUnderSampleRatio
	}
	return &RandomUnderSampler{Ratio: ratio, rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomUnderSampler) Balance(windows [][][]float64, labels []string) ([][][]float64, []string, error) {
	if len(windows) != len(labels) {
		return nil, nil, fmt.Errorf("%w: %d windows vs %d labels", ErrConfig, len(windows), len(labels))
	}
	if s.Ratio <= 0 || s.Ratio > 1 {
		return nil, nil, fmt.Errorf("%w: under-sample ratio %v outside (0, 1]", ErrConfig, s.Ratio)
	}
	if len(labels) == 0 {
		return windows, labels, nil
	}

	byClass := groupByClass(labels)
	minority := len(labels)
	for _, members := range byClass {
		if len(members) < minority {
			minority = len(members)
		}
	}
	limit := int(math.Floor(float64(minority) / s.Ratio))

	keep := make([]bool, len(labels))
	for _, class := range sortedClasses(byClass) {
		members := byClass[class]
		if len(members) <= limit {
			for _, i := range members {
				keep[i] = true
			}
			continue
		}
		for _, p := range s.rng.Perm(len(members))[:limit] {
			keep[members[p]] = true
		}
	}

	outWindows := make([][][]float64, 0, len(labels))
	outLabels := make([]string, 0, len(labels))
	for i := range labels {
		if keep[i] {
			outWindows = append(outWindows, windows[i])
			outLabels = append(outLabels, labels[i])
		}
	}
	return outWindows, outLabels, nil
}

// groupByClass maps each class to the positions of its members, in input
// order.
func groupByClass(labels []string) map[string][]int {
	byClass := make(map[string][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	return byClass
}

// sortedClasses returns the distinct classes in lexicographic order. Samplers
// iterate classes in this order so a fixed seed always produces the same
// resampled dataset.
func sortedClasses(byClass map[string][]int) []string {
	classes := make([]string, 0, len(byClass))
	for class := range byClass {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
