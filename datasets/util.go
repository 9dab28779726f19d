package datasets

import (
	"fmt"
	"strconv"
	"strings"
)

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	return strconv.ParseFloat(s, 64)
}

func trimField(s string) string {
	return strings.TrimSpace(s)
}

// labelIndex converts a raw label string to its integer class index. Labels
// in this pipeline are class indices written as text; anything else is
// ErrBadLabel.
func labelIndex(label string) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(label))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	return idx, nil
}
