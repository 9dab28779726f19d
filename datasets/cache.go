package datasets

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const cacheVersion = 1

// cacheFormat is the on-disk representation of an aligned dataset. It
// includes metadata to validate cache integrity: a cache built for a
// different window spec, tolerance or file group set must not be reused.
type cacheFormat struct {
	Version   int
	Spec      WindowSpec
	Tolerance float64
	Groups    []FileGroup
	CreatedAt int64
	Windows   [][][]float64
	Labels    []string
}

// SaveCache writes the aligned windows and labels to path using encoding/gob.
// The write is atomic: a temp file in the target directory is renamed into
// place. The dataset must be initialized first.
func (d *WindowDataset) SaveCache(path string) error {
	if path == "" {
		return fmt.Errorf("empty cache path")
	}
	if d.windows == nil {
		return fmt.Errorf("%w: dataset not initialized", ErrConfig)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// create a temp file in the same directory for atomicity
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	enc := gob.NewEncoder(tmpFile)
	pc := cacheFormat{
		Version:   cacheVersion,
		Spec:      d.cfg.Spec,
		Tolerance: d.aligner.Tolerance,
		Groups:    d.groups,
		CreatedAt: time.Now().Unix(),
		Windows:   d.windows,
		Labels:    d.labels,
	}
	if err := enc.Encode(&pc); err != nil {
		return fmt.Errorf("encode cache to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp cache to target: %w", err)
	}
	return nil
}

// LoadCache reads an aligned dataset from disk, replacing any loaded data and
// rewinding the cursor. The cache metadata must match the dataset's window
// spec, tolerance and file groups exactly; otherwise an error is returned and
// the dataset is left untouched, in which case the caller falls back to
// Initialize.
func (d *WindowDataset) LoadCache(path string) error {
	if path == "" {
		return fmt.Errorf("empty cache path")
	}
	fh, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cache file %s: %w", path, err)
	}
	defer fh.Close()

	dec := gob.NewDecoder(fh)
	var pc cacheFormat
	if err := dec.Decode(&pc); err != nil {
		return fmt.Errorf("decode cache %s: %w", path, err)
	}
	if pc.Version != cacheVersion {
		return fmt.Errorf("cache version mismatch: cache=%d expected=%d", pc.Version, cacheVersion)
	}
	if !slices.Equal(pc.Spec.Offsets, d.cfg.Spec.Offsets) ||
		pc.Spec.Start != d.cfg.Spec.Start ||
		pc.Spec.Skip != d.cfg.Spec.Skip ||
		pc.Spec.Stride != d.cfg.Spec.Stride {
		return fmt.Errorf("cache window spec mismatch: cache=%+v expected=%+v", pc.Spec, d.cfg.Spec)
	}
	if pc.Tolerance != d.aligner.Tolerance {
		return fmt.Errorf("cache tolerance mismatch: cache=%v expected=%v", pc.Tolerance, d.aligner.Tolerance)
	}
	if !slices.Equal(pc.Groups, d.groups) {
		return fmt.Errorf("cache file groups mismatch: cache has %d groups, expected %d", len(pc.Groups), len(d.groups))
	}
	if pc.Labels != nil && len(pc.Labels) != len(pc.Windows) {
		return fmt.Errorf("cache size mismatch: windows=%d labels=%d", len(pc.Windows), len(pc.Labels))
	}

	// adopt cached buffers and rebuild derived state
	d.windows = pc.Windows
	d.labels = pc.Labels
	d.numFeatures = 0
	if len(pc.Windows) > 0 && len(pc.Windows[0]) > 0 {
		d.numFeatures = len(pc.Windows[0][0])
	}
	d.classes = nil
	d.histogram = nil
	d.classWeights = nil
	d.sampleWeights = nil
	if d.labels != nil {
		d.refreshStats()
	}
	d.cursor = 0
	return nil
}
