package datasets

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// DumpLabels writes labels to path as integer class indices, one per line
// with no trailing newline. Every label is parsed before the file is touched,
// so a bad label never leaves a partial file behind.
func DumpLabels(labels []string, path string) error {
	ids := make([]int, len(labels))
	for i, label := range labels {
		id, err := labelIndex(label)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for i, id := range ids {
		if i > 0 {
			if _, err := w.WriteString("\n"); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		if _, err := w.WriteString(strconv.Itoa(id)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return file.Close()
}

// DumpLabels writes the dataset's current labels, post shuffle and balance,
// in the same format.
func (d *WindowDataset) DumpLabels(path string) error {
	if d.labels == nil {
		return fmt.Errorf("%w: dataset has no labels", ErrConfig)
	}
	return DumpLabels(d.labels, path)
}
