package datasets

import (
	"fmt"
	"path/filepath"
)

// FileGroup names the four files that make up one recording: the feature
// table, its timestamp column, the label column and the label timestamp
// column. Y may be empty for unlabeled recordings; YTime is still required
// because label timestamps drive window placement.
type FileGroup struct {
	X     string
	Y     string
	XTime string
	YTime string
}

// Labeled reports whether the group carries a label file.
func (g FileGroup) Labeled() bool {
	return g.Y != ""
}

func (g FileGroup) validate(labeled bool) error {
	if g.X == "" || g.XTime == "" || g.YTime == "" {
		return fmt.Errorf("%w: file group %+v is missing a feature or timestamp file", ErrConfig, g)
	}
	if g.Labeled() != labeled {
		return fmt.Errorf("%w: label files must be present for all groups or none", ErrConfig)
	}
	return nil
}

// Group builds the conventional file group for a recording prefix inside dir:
// {prefix}x.csv, {prefix}y.csv, {prefix}x_time.csv and {prefix}y_time.csv.
func Group(dir, prefix string) FileGroup {
	return FileGroup{
		X:     filepath.Join(dir, prefix+"x.csv"),
		Y:     filepath.Join(dir, prefix+"y.csv"),
		XTime: filepath.Join(dir, prefix+"x_time.csv"),
		YTime: filepath.Join(dir, prefix+"y_time.csv"),
	}
}

// Groups builds one conventional file group per prefix. With skipLabels set
// the label files are left out, for recordings that only need windows built
// around known label timestamps.
func Groups(dir string, prefixes []string, skipLabels bool) []FileGroup {
	groups := make([]FileGroup, len(prefixes))
	for i, prefix := range prefixes {
		groups[i] = Group(dir, prefix)
		if skipLabels {
			groups[i].Y = ""
		}
	}
	return groups
}
