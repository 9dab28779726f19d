package datasets

// Balanced weighting: with n samples over k classes, class j is weighted
// n / (k * count_j). Rare classes are weighted up and common classes down so
// every class contributes the same total weight to a training loss; the
// weights of all samples sum back to n.

// BalancedClassWeights returns the distinct classes of labels in
// lexicographic order along with one weight per class. Empty labels yield
// empty slices.
func BalancedClassWeights(labels []string) (classes []string, weights []float64) {
	byClass := groupByClass(labels)
	classes = sortedClasses(byClass)
	weights = make([]float64, len(classes))
	n := float64(len(labels))
	k := float64(len(classes))
	for j, class := range classes {
		weights[j] = n / (k * float64(len(byClass[class])))
	}
	return classes, weights
}

// BalancedSampleWeights returns one weight per sample, each sample carrying
// the weight of its class.
func BalancedSampleWeights(labels []string) []float64 {
	byClass := groupByClass(labels)
	n := float64(len(labels))
	k := float64(len(byClass))
	perClass := make(map[string]float64, len(byClass))
	for class, members := range byClass {
		perClass[class] = n / (k * float64(len(members)))
	}
	weights := make([]float64, len(labels))
	for i, label := range labels {
		weights[i] = perClass[label]
	}
	return weights
}
