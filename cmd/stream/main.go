package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bitvane/chronofeed/datasets"
	"github.com/bitvane/chronofeed/simple"
	"github.com/bitvane/chronofeed/synth"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// defaultTunablesJSON is written to cmd/stream/data.json when the user did
// not provide a --tunables path, so the default configuration is available on
// disk for editing. CLI flags always override JSON values.
const defaultTunablesJSON = `{
  "synth": {
    "n_features": 4,
    "sample_every": 0.1,
    "duration": 120.0,
    "label_every": 1.0,
    "classes": 3,
    "noise": 0.05,
    "drop_rate": 0.05
  },
  "window": {
    "length": 8,
    "spacing": 0.1,
    "tolerance": 1e-6
  },
  "training": {
    "learning_rate": 0.05,
    "epochs": 20,
    "batch_size": 32,
    "clip_norm": 5.0
  }
}
`

// tunablesFormat mirrors defaultTunablesJSON with pointer-typed fields so a
// partially filled file only overrides what it names.
type tunablesFormat struct {
	Synth *struct {
		NFeatures   *int     `json:"n_features"`
		SampleEvery *float64 `json:"sample_every"`
		Duration    *float64 `json:"duration"`
		LabelEvery  *float64 `json:"label_every"`
		Classes     *int     `json:"classes"`
		Noise       *float64 `json:"noise"`
		DropRate    *float64 `json:"drop_rate"`
	} `json:"synth"`
	Window *struct {
		Length    *int     `json:"length"`
		Spacing   *float64 `json:"spacing"`
		Tolerance *float64 `json:"tolerance"`
	} `json:"window"`
	Training *struct {
		LearningRate *float64 `json:"learning_rate"`
		Epochs       *int     `json:"epochs"`
		BatchSize    *int     `json:"batch_size"`
		ClipNorm     *float64 `json:"clip_norm"`
	} `json:"training"`
}

func main() {
	// CLI flags
	dataDir := flag.String("data", "output/groups", "directory holding (or receiving) the CSV file groups")
	numGroups := flag.Int("groups", 3, "number of synthetic file groups to generate")
	generate := flag.Bool("generate", true, "generate synthetic groups before loading (skipped when the files already exist)")
	outDir := flag.String("out", "plots", "output directory for generated plots")
	labelsOut := flag.String("labels-out", "output/labels.txt", "path for the dumped integer label file (empty to skip)")
	cachePath := flag.String("cache", "output/windows.gob", "path to gob file for saving/loading aligned windows (empty to disable)")
	cacheForce := flag.Bool("cache-force", false, "if true, realign and overwrite an existing cache")
	seed := flag.Int64("seed", 1, "random seed for generation, shuffling and training")
	workers := flag.Int("workers", 0, "worker count for group generation (0 = NumCPU)")
	progressInterval := flag.Int("progress-interval", 3, "progress logging interval for generation in seconds")

	// Synth tunables
	synthFeatures := flag.Int("synth-features", 4, "number of synthetic feature channels")
	synthSampleEvery := flag.Float64("synth-sample-every", 0.1, "synthetic feature sampling interval")
	synthDuration := flag.Float64("synth-duration", 120.0, "synthetic recording duration per group")
	synthLabelEvery := flag.Float64("synth-label-every", 1.0, "synthetic label interval")
	synthClasses := flag.Int("synth-classes", 3, "number of synthetic label classes")
	synthNoise := flag.Float64("synth-noise", 0.05, "synthetic per-channel noise standard deviation")
	synthDropRate := flag.Float64("synth-drop-rate", 0.05, "probability a synthetic feature sample is dropped")

	// Window tunables
	windowLen := flag.Int("window", 8, "number of samples per window")
	windowSpacing := flag.Float64("window-spacing", 0.1, "time gap between consecutive window offsets")
	tolerance := flag.Float64("tolerance", 1e-6, "timestamp matching tolerance")

	// Pipeline tunables
	shuffle := flag.Bool("shuffle", true, "shuffle windows and labels jointly after loading")
	balanceMode := flag.String("balance", "over", "class balancing strategy: 'over', 'under' or 'none'")
	balanceRatio := flag.Float64("balance-ratio", 0, "resampling ratio for the balancer (0 = strategy default)")

	// Training tunables for the simple classifier
	trainLearningRate := flag.Float64("learning-rate", 0.05, "learning rate for training (overrides JSON if provided)")
	trainEpochs := flag.Int("epochs", 20, "number of training epochs (overrides JSON if provided)")
	trainBatchSize := flag.Int("batch-size", 32, "training and streaming batch size (overrides JSON if provided)")
	clipNorm := flag.Float64("clip-norm", 5.0, "per-layer gradient clipping norm")

	// Optional JSON tunables file
	tunablesPath := flag.String("tunables", "", "path to JSON tunables file (optional). If empty, data.json is written with defaults and loaded.")

	// Print merged effective configuration and exit (dry-run)
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (JSON+CLI merged) configuration and exit")

	flag.Parse()

	// Tunables file behavior:
	// - If the user supplied -tunables, load that JSON file.
	// - Otherwise ensure a default data.json exists on disk (created from
	//   embedded defaults) and load it. Explicit CLI flags always override
	//   JSON values, so JSON is applied only where the flag kept its default.
	effectivePath := strings.TrimSpace(*tunablesPath)
	if effectivePath == "" {
		effectivePath = "data.json"
		if _, err := os.Stat(effectivePath); os.IsNotExist(err) {
			if werr := os.WriteFile(effectivePath, []byte(defaultTunablesJSON), 0644); werr != nil {
				log.Printf("warning: failed to write default tunables to %s: %v", effectivePath, werr)
			} else {
				log.Printf("Wrote default tunables to %s", effectivePath)
			}
		}
	}
	if data, err := os.ReadFile(effectivePath); err == nil {
		var raw tunablesFormat
		if jerr := json.Unmarshal(data, &raw); jerr != nil {
			log.Printf("warning: failed to parse tunables from %s: %v", effectivePath, jerr)
		} else {
			if raw.Synth != nil {
				s := raw.Synth
				if s.NFeatures != nil && *synthFeatures == 4 {
					*synthFeatures = *s.NFeatures
				}
				if s.SampleEvery != nil && *synthSampleEvery == 0.1 {
					*synthSampleEvery = *s.SampleEvery
				}
				if s.Duration != nil && *synthDuration == 120.0 {
					*synthDuration = *s.Duration
				}
				if s.LabelEvery != nil && *synthLabelEvery == 1.0 {
					*synthLabelEvery = *s.LabelEvery
				}
				if s.Classes != nil && *synthClasses == 3 {
					*synthClasses = *s.Classes
				}
				if s.Noise != nil && *synthNoise == 0.05 {
					*synthNoise = *s.Noise
				}
				if s.DropRate != nil && *synthDropRate == 0.05 {
					*synthDropRate = *s.DropRate
				}
			}
			if raw.Window != nil {
				w := raw.Window
				if w.Length != nil && *windowLen == 8 {
					*windowLen = *w.Length
				}
				if w.Spacing != nil && *windowSpacing == 0.1 {
					*windowSpacing = *w.Spacing
				}
				if w.Tolerance != nil && *tolerance == 1e-6 {
					*tolerance = *w.Tolerance
				}
			}
			if raw.Training != nil {
				tr := raw.Training
				if tr.LearningRate != nil && *trainLearningRate == 0.05 {
					*trainLearningRate = *tr.LearningRate
				}
				if tr.Epochs != nil && *trainEpochs == 20 {
					*trainEpochs = *tr.Epochs
				}
				if tr.BatchSize != nil && *trainBatchSize == 32 {
					*trainBatchSize = *tr.BatchSize
				}
				if tr.ClipNorm != nil && *clipNorm == 5.0 {
					*clipNorm = *tr.ClipNorm
				}
			}
			log.Printf("Loaded tunables from %s", effectivePath)
		}
	} else if strings.TrimSpace(*tunablesPath) != "" {
		log.Fatalf("failed to read tunables %s: %v", *tunablesPath, err)
	}

	// Window geometry: offsets spaced windowSpacing apart ending at the label
	// timestamp. Skip and Stride stay at 1: dropped samples shift the row
	// grid, and the aligner's forward walk only recovers from positions that
	// lag behind the target, never positions past it.
	spec := datasets.WindowSpec{
		Offsets: datasets.EvenOffsets(*windowLen, *windowSpacing),
		Start:   0,
		Skip:    1,
		Stride:  1,
	}

	if *printEffectiveConfig {
		fmt.Printf("Effective synth configuration:\n")
		fmt.Printf("  n_features: %d\n", *synthFeatures)
		fmt.Printf("  sample_every: %f\n", *synthSampleEvery)
		fmt.Printf("  duration: %f\n", *synthDuration)
		fmt.Printf("  label_every: %f\n", *synthLabelEvery)
		fmt.Printf("  classes: %d\n", *synthClasses)
		fmt.Printf("  noise: %f\n", *synthNoise)
		fmt.Printf("  drop_rate: %f\n", *synthDropRate)
		fmt.Printf("Window spec:\n")
		fmt.Printf("  offsets: %v\n", spec.Offsets)
		fmt.Printf("  skip: %d stride: %d tolerance: %g\n", spec.Skip, spec.Stride, *tolerance)
		fmt.Printf("Training settings:\n")
		fmt.Printf("  learning_rate: %f\n", *trainLearningRate)
		fmt.Printf("  epochs: %d\n", *trainEpochs)
		fmt.Printf("  batch_size: %d\n", *trainBatchSize)
		fmt.Printf("  clip_norm: %f\n", *clipNorm)
		os.Exit(0)
	}

	prefixes := make([]string, *numGroups)
	for i := range prefixes {
		prefixes[i] = fmt.Sprintf("group%02d_", i)
	}

	if *generate {
		if err := generateGroups(*dataDir, prefixes, synth.Generator{
			NFeatures:   *synthFeatures,
			SampleEvery: *synthSampleEvery,
			Duration:    *synthDuration,
			LabelEvery:  *synthLabelEvery,
			Classes:     *synthClasses,
			Noise:       *synthNoise,
			DropRate:    *synthDropRate,
		}, *seed, *workers, *progressInterval); err != nil {
			log.Fatalf("failed to generate groups: %v", err)
		}
	}

	// Balancer selection
	var balancer datasets.Balancer
	switch strings.ToLower(*balanceMode) {
	case "over":
		balancer = datasets.NewRandomOverSampler(*balanceRatio, *seed)
	case "under":
		balancer = datasets.NewRandomUnderSampler(*balanceRatio, *seed)
	case "none", "":
		balancer = nil
	default:
		log.Fatalf("unknown balance mode %q (want over, under or none)", *balanceMode)
	}

	groups := datasets.Groups(*dataDir, prefixes, false)
	ds, err := datasets.NewWindowDataset(groups, datasets.Config{
		Spec:      spec,
		BatchSize: *trainBatchSize,
		Shuffle:   *shuffle,
		Balancer:  balancer,
		Tolerance: *tolerance,
		Seed:      *seed,
	})
	if err != nil {
		log.Fatalf("failed to build dataset: %v", err)
	}

	// Raw class counts before balancing, for the histogram plot.
	rawCounts := make(map[string]int)
	for _, g := range groups {
		labels, err := datasets.ReadLabels(g.Y)
		if err != nil {
			log.Fatalf("failed to read labels from %s: %v", g.Y, err)
		}
		for _, label := range labels {
			rawCounts[label]++
		}
	}

	// Cache behavior mirrors the precompute cache: load when present and
	// valid, otherwise align from the CSVs and save back.
	start := time.Now()
	if *cachePath != "" && !*cacheForce {
		if err := ds.LoadCache(*cachePath); err == nil {
			log.Printf("Loaded aligned windows from cache %s (samples=%d)", *cachePath, ds.Len())
		} else {
			log.Printf("Cache load failed (%v). Aligning from CSVs and will save to %s", err, *cachePath)
			if err := ds.Initialize(); err != nil {
				log.Fatalf("failed to initialize dataset: %v", err)
			}
			if serr := ds.SaveCache(*cachePath); serr != nil {
				log.Printf("warning: failed to save cache to %s: %v", *cachePath, serr)
			} else {
				log.Printf("Saved aligned windows to %s", *cachePath)
			}
		}
	} else {
		if err := ds.Initialize(); err != nil {
			log.Fatalf("failed to initialize dataset: %v", err)
		}
		if *cachePath != "" {
			if serr := ds.SaveCache(*cachePath); serr != nil {
				log.Printf("warning: failed to save cache to %s: %v", *cachePath, serr)
			} else {
				log.Printf("Saved aligned windows to %s", *cachePath)
			}
		}
	}
	log.Printf("Dataset ready in %v: samples=%d window=%d features=%d classes=%v",
		time.Since(start), ds.Len(), ds.WindowLen(), ds.NumFeatures(), ds.Classes())

	means, stds := ds.ChannelStats()
	log.Printf("Channel means=%v stds=%v zero-row fraction=%.3f", means, stds, ds.ZeroRowFraction())

	// Train the downstream classifier on the aligned windows.
	model, err := simple.NewModel(simple.Config{
		HiddenSizes:  []int{64, 32},
		InputDim:     ds.InputDim(),
		NumClasses:   ds.NumClasses(),
		LearningRate: *trainLearningRate,
		Epochs:       *trainEpochs,
		BatchSize:    *trainBatchSize,
		Seed:         *seed,
		ClipNorm:     *clipNorm,
	})
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}
	start = time.Now()
	log.Printf("Training classifier on %d windows (epochs=%d, batch=%d)...", ds.Len(), *trainEpochs, *trainBatchSize)
	loss, err := model.TrainWithDataset(ds)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	acc, err := model.Evaluate(ds)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	log.Printf("Training completed in %v: final loss=%.4f train accuracy=%.3f", time.Since(start), loss, acc)

	if *labelsOut != "" {
		if err := os.MkdirAll(filepath.Dir(*labelsOut), 0755); err != nil {
			log.Fatalf("failed to create label output dir: %v", err)
		}
		if err := ds.DumpLabels(*labelsOut); err != nil {
			log.Fatalf("failed to dump labels: %v", err)
		}
		log.Printf("Dumped %d labels to %s", ds.Len(), *labelsOut)
	}

	if err := plotClassHistogram(*outDir, ds, rawCounts); err != nil {
		log.Fatalf("failed to plot class histogram: %v", err)
	}
	if err := plotWindowTraces(*outDir, ds); err != nil {
		log.Fatalf("failed to plot window traces: %v", err)
	}
	log.Printf("Plots written to %s", *outDir)
}

// generateGroups writes one synthetic file group per prefix, each with its
// own derived seed, using a small worker pool with periodic progress logging.
// Prefixes whose four files already exist are skipped.
func generateGroups(dir string, prefixes []string, tmpl synth.Generator, seed int64, workers, progressSeconds int) error {
	pending := make([]int, 0, len(prefixes))
	for i, prefix := range prefixes {
		g := datasets.Group(dir, prefix)
		if fileExists(g.X) && fileExists(g.Y) && fileExists(g.XTime) && fileExists(g.YTime) {
			continue
		}
		pending = append(pending, i)
	}
	if len(pending) == 0 {
		log.Printf("All %d groups already present in %s", len(prefixes), dir)
		return nil
	}

	n := len(pending)
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	jobs := make(chan int, n)
	errCh := make(chan error, workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	var done int64
	ticker := time.NewTicker(time.Duration(progressSeconds) * time.Second)
	stopProgress := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d := atomic.LoadInt64(&done)
				log.Printf("[Generate] progress: %d/%d", d, n)
			case <-stopProgress:
				log.Printf("[Generate] completed: %d/%d", atomic.LoadInt64(&done), n)
				return
			}
		}
	}()

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				gen, err := synth.New(tmpl, seed+int64(idx)+1)
				if err != nil {
					errCh <- fmt.Errorf("generator for %s: %w", prefixes[idx], err)
					return
				}
				if err := gen.WriteGroup(dir, prefixes[idx]); err != nil {
					errCh <- fmt.Errorf("write group %s: %w", prefixes[idx], err)
					return
				}
				atomic.AddInt64(&done, 1)
			}
		}()
	}

	for _, idx := range pending {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	close(stopProgress)
	close(errCh)

	select {
	case e := <-errCh:
		return e
	default:
	}
	log.Printf("Generated %d groups in %s", n, dir)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// plotClassHistogram writes a grouped bar chart of per-class window counts
// before (grey) and after (blue) shuffling/balancing.
func plotClassHistogram(outDir string, ds *datasets.WindowDataset, rawCounts map[string]int) error {
	classes := ds.Classes()
	raw := make(plotter.Values, len(classes))
	final := make(plotter.Values, len(classes))
	for j, class := range classes {
		raw[j] = float64(rawCounts[class])
		final[j] = float64(ds.Histogram()[class])
	}

	p := plot.New()
	p.Title.Text = "Class distribution: raw (grey) vs balanced (blue)"
	p.Y.Label.Text = "windows"

	barWidth := vg.Points(18)
	rawBars, err := plotter.NewBarChart(raw, barWidth)
	if err != nil {
		return err
	}
	rawBars.Color = color.RGBA{R: 120, G: 120, B: 120, A: 200}
	rawBars.Offset = -barWidth / 2
	p.Add(rawBars)
	p.Legend.Add("raw", rawBars)

	finalBars, err := plotter.NewBarChart(final, barWidth)
	if err != nil {
		return err
	}
	finalBars.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	finalBars.Offset = barWidth / 2
	p.Add(finalBars)
	p.Legend.Add("balanced", finalBars)

	p.NominalX(classes...)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(outDir, "class_histogram.png"))
}

// plotWindowTraces draws each feature channel of the first few windows as a
// line over the window positions, zero-filled misses included.
func plotWindowTraces(outDir string, ds *datasets.WindowDataset) error {
	p := plot.New()
	p.Title.Text = "Sample window traces"
	p.X.Label.Text = "window position"
	p.Y.Label.Text = "feature value"

	numWindows := 3
	if ds.Len() < numWindows {
		numWindows = ds.Len()
	}
	for w := 0; w < numWindows; w++ {
		window, label, err := ds.Example(w)
		if err != nil {
			return err
		}
		for c := 0; c < ds.NumFeatures(); c++ {
			xys := make(plotter.XYs, len(window))
			for pos, row := range window {
				xys[pos] = plotter.XY{X: float64(pos), Y: row[c]}
			}
			line, err := plotter.NewLine(xys)
			if err != nil {
				return err
			}
			line.Color = color.RGBA{
				R: uint8(40 + w*70),
				G: uint8(60 + c*40),
				B: uint8(200 - w*50),
				A: 200,
			}
			line.Width = vg.Points(0.8)
			p.Add(line)
			if c == 0 {
				p.Legend.Add(fmt.Sprintf("window %d (class %s)", w, label), line)
			}
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, filepath.Join(outDir, "window_traces.png"))
}
