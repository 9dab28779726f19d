package simple

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Config holds configurable hyperparameters for the MLP classifier and training.
type Config struct {
	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 64 will be used.
	HiddenSizes []int

	// InputDim is the dimensionality of the flattened input window,
	// windowLen * numFeatures. Required.
	InputDim int

	// NumClasses is the number of output classes. Required.
	NumClasses int

	// LearningRate used by the SGD optimizer (default 0.01).
	LearningRate float64

	// Epochs to train for (default 10).
	Epochs int

	// BatchSize for mini-batch updates (default 8).
	BatchSize int

	// Seed controls RNG for weight init and shuffling. If zero, a time-based
	// seed is used.
	Seed int64

	// ClipNorm is the per-layer gradient clipping threshold. If zero a
	// sensible default (5.0) is used.
	ClipNorm float64
}

// Dataset is the minimal interface this package requires from a windowed
// training dataset. This keeps simple decoupled from the concrete datasets
// package; the repository's WindowDataset matches these methods directly.
type Dataset interface {
	Len() int
	NumClasses() int
	InputDim() int
	// FlatBatch returns flattened window inputs, integer class ids and
	// per-sample weights for the provided global indices.
	FlatBatch(indices []int) ([][]float64, []int, []float64, error)
}

// Model is a small configurable MLP classifier over flattened feature
// windows: ReLU hidden layers, a softmax output and a weighted cross-entropy
// loss, trained with mini-batch SGD. It is a lightweight, self-contained
// trainer in pure Go so tests run quickly and deterministically.
type Model struct {
	// Config used for training / initialization.
	Config Config

	// layerSizes includes input size, hidden sizes, then output size.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1
	weights [][][]float64

	// biases[l] is a vector of length out for layer l -> l+1
	biases [][]float64

	// rng used for weight initialization and shuffling
	rng *rand.Rand
}

// NewModel creates a new Model instance with the provided configuration.
// It initializes weights (small random values) and is ready to train.
func NewModel(cfg Config) (*Model, error) {
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("input dimension must be positive, got %d", cfg.InputDim)
	}
	if cfg.NumClasses < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", cfg.NumClasses)
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{64}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 8
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.ClipNorm == 0 {
		cfg.ClipNorm = 5.0
	}

	m := &Model{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, cfg.NumClasses)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float64, L)
	m.biases = make([][]float64, L)
	for l := 0; l < L; l++ {
		in := sizes[l]
		out := sizes[l+1]
		// Xavier/Glorot uniform initialization heuristic
		limit := math.Sqrt(6.0 / float64(in+out))
		mat := make([][]float64, out)
		for j := 0; j < out; j++ {
			row := make([]float64, in)
			for i := 0; i < in; i++ {
				row[i] = (m.rng.Float64()*2.0 - 1.0) * limit * 0.5
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float64, out)
	}

	return m, nil
}

// activationReLU applies ReLU in-place over the slice.
func activationReLU(x []float64) {
	for i := range x {
		if x[i] < 0 {
			x[i] = 0
		}
	}
}

// softmax converts logits to probabilities in-place, shifted by the max logit
// for numerical stability.
func softmax(x []float64) {
	maxVal := x[0]
	for _, v := range x[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for i := range x {
		x[i] = math.Exp(x[i] - maxVal)
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}

// forwardSingle performs a forward pass for a single input vector, returning:
// - preActivations: list of pre-activation vectors per layer (len = L)
// - activations: list of activation vectors per layer (len = L+1, activations[0] = input)
// The final activation is the softmax class distribution.
func (m *Model) forwardSingle(input []float64) (preActs [][]float64, acts [][]float64, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, fmt.Errorf("input has dimension %d, model expects %d", len(input), m.layerSizes[0])
	}
	L := len(m.weights)
	acts = make([][]float64, L+1)
	acts[0] = make([]float64, len(input))
	copy(acts[0], input)

	preActs = make([][]float64, L)
	for l := 0; l < L; l++ {
		inVec := acts[l]
		outDim := len(m.biases[l])
		inDim := len(inVec)
		pre := make([]float64, outDim)
		W := m.weights[l]
		b := m.biases[l]
		for j := 0; j < outDim; j++ {
			sum := 0.0
			row := W[j]
			for i := 0; i < inDim; i++ {
				sum += row[i] * inVec[i]
			}
			pre[j] = sum + b[j]
		}
		preActs[l] = pre

		// Activation: ReLU for hidden, softmax for the output layer
		act := make([]float64, outDim)
		copy(act, pre)
		if l < L-1 {
			activationReLU(act)
		} else {
			softmax(act)
		}
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// PredictBatch returns class probabilities for a batch of flattened windows.
// It does a purely forward pass (no training). The returned [][]float64 has
// shape [batch][NumClasses] and each row sums to 1.
func (m *Model) PredictBatch(inputs [][]float64) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		_, acts, err := m.forwardSingle(in)
		if err != nil {
			return nil, err
		}
		probs := acts[len(acts)-1]
		pred := make([]float64, len(probs))
		copy(pred, probs)
		out[i] = pred
	}
	return out, nil
}

// PredictClasses returns the argmax class id for every input.
func (m *Model) PredictClasses(inputs [][]float64) ([]int, error) {
	probs, err := m.PredictBatch(inputs)
	if err != nil {
		return nil, err
	}
	classes := make([]int, len(probs))
	for i, p := range probs {
		best := 0
		for j := 1; j < len(p); j++ {
			if p[j] > p[best] {
				best = j
			}
		}
		classes[i] = best
	}
	return classes, nil
}

// TrainWithDataset trains the classifier with mini-batch SGD: ReLU hidden
// layers, softmax output and a sample-weighted cross-entropy loss, so the
// dataset's balanced weights make rare classes count more. Gradients are
// averaged over the mini-batch and clipped per layer to Config.ClipNorm
// before each update. Returns the mean weighted loss of the final epoch.
func (m *Model) TrainWithDataset(ds Dataset) (float64, error) {
	if ds == nil {
		return 0, errors.New("dataset is nil")
	}
	n := ds.Len()
	if n == 0 {
		return 0, errors.New("dataset has no examples")
	}
	if ds.InputDim() != m.layerSizes[0] {
		return 0, fmt.Errorf("dataset input dimension %d does not match model %d", ds.InputDim(), m.layerSizes[0])
	}
	if ds.NumClasses() > m.Config.NumClasses {
		return 0, fmt.Errorf("dataset has %d classes, model only %d", ds.NumClasses(), m.Config.NumClasses)
	}

	epochs := m.Config.Epochs
	batchSize := m.Config.BatchSize
	lr := m.Config.LearningRate

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	lastEpochLoss := 0.0
	for ep := 0; ep < epochs; ep++ {
		m.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		epochLoss := 0.0
		epochWeight := 0.0
		for bstart := 0; bstart < n; bstart += batchSize {
			bend := bstart + batchSize
			if bend > n {
				bend = n
			}
			batchIdx := indices[bstart:bend]

			inputs, classes, weights, err := ds.FlatBatch(batchIdx)
			if err != nil {
				return 0, err
			}
			batchN := len(inputs)
			if batchN == 0 {
				continue
			}

			// Gradient accumulators, same shape as weights / biases
			L := len(m.weights)
			gradW := make([][][]float64, L)
			gradB := make([][]float64, L)
			for l := 0; l < L; l++ {
				outDim := len(m.biases[l])
				inDim := len(m.weights[l][0])
				gradW[l] = make([][]float64, outDim)
				for j := 0; j < outDim; j++ {
					gradW[l][j] = make([]float64, inDim)
				}
				gradB[l] = make([]float64, outDim)
			}

			for ex := 0; ex < batchN; ex++ {
				in := inputs[ex]
				class := classes[ex]
				weight := weights[ex]
				if class < 0 || class >= m.Config.NumClasses {
					return 0, fmt.Errorf("class id %d outside [0, %d)", class, m.Config.NumClasses)
				}

				preacts, acts, err := m.forwardSingle(in)
				if err != nil {
					return 0, err
				}

				probs := acts[len(acts)-1]
				epochLoss += -weight * math.Log(math.Max(probs[class], 1e-12))
				epochWeight += weight

				// Softmax + cross-entropy gradient at the output is
				// probs - onehot, scaled by the sample weight.
				delta := make([]float64, len(probs))
				copy(delta, probs)
				delta[class] -= 1.0
				for j := range delta {
					delta[j] *= weight
				}

				// Backprop, accumulating into gradW/gradB
				for l := len(m.weights) - 1; l >= 0; l-- {
					inAct := acts[l]
					outDim := len(delta)
					inDim := len(inAct)

					for j := 0; j < outDim; j++ {
						gradB[l][j] += delta[j]
						for i := 0; i < inDim; i++ {
							gradW[l][j][i] += delta[j] * inAct[i]
						}
					}

					if l > 0 {
						prevLen := len(m.weights[l][0])
						newDelta := make([]float64, prevLen)
						for i := 0; i < prevLen; i++ {
							sum := 0.0
							for j := 0; j < outDim; j++ {
								sum += m.weights[l][j][i] * delta[j]
							}
							if preacts[l-1][i] <= 0 {
								sum = 0
							}
							newDelta[i] = sum
						}
						delta = newDelta
					}
				}
			}

			// Average over the mini-batch, clip per layer and apply SGD.
			bInv := 1.0 / float64(batchN)
			for l := 0; l < L; l++ {
				scale := bInv * m.clipScale(gradW[l], gradB[l], bInv)
				outDim := len(m.biases[l])
				inDim := len(m.weights[l][0])
				for j := 0; j < outDim; j++ {
					m.biases[l][j] -= lr * gradB[l][j] * scale
					for i := 0; i < inDim; i++ {
						m.weights[l][j][i] -= lr * gradW[l][j][i] * scale
					}
				}
			}
		}
		if epochWeight > 0 {
			lastEpochLoss = epochLoss / epochWeight
		}
	}

	return lastEpochLoss, nil
}

// clipScale returns the factor that scales a layer's averaged gradient down
// to Config.ClipNorm when its L2 norm exceeds it, 1 otherwise.
func (m *Model) clipScale(gradW [][]float64, gradB []float64, bInv float64) float64 {
	sumSq := 0.0
	for j := range gradW {
		g := gradB[j] * bInv
		sumSq += g * g
		for i := range gradW[j] {
			g = gradW[j][i] * bInv
			sumSq += g * g
		}
	}
	norm := math.Sqrt(sumSq)
	if norm <= m.Config.ClipNorm || norm == 0 {
		return 1.0
	}
	return m.Config.ClipNorm / norm
}

// Evaluate returns the fraction of dataset examples whose argmax prediction
// matches the label.
func (m *Model) Evaluate(ds Dataset) (float64, error) {
	if ds == nil {
		return 0, errors.New("dataset is nil")
	}
	n := ds.Len()
	if n == 0 {
		return 0, errors.New("dataset has no examples")
	}

	correct := 0
	batchSize := m.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		indices := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			indices = append(indices, i)
		}
		inputs, classes, _, err := ds.FlatBatch(indices)
		if err != nil {
			return 0, err
		}
		preds, err := m.PredictClasses(inputs)
		if err != nil {
			return 0, err
		}
		for i, p := range preds {
			if p == classes[i] {
				correct++
			}
		}
	}
	return float64(correct) / float64(n), nil
}
