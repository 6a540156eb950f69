package group

import (
	"slices"
	"strings"
)

const (
	nameSeparator  = ", "
	groupSeparator = "\n"
)

// Format sorts groups by comparing their names element by element and
// renders one comma-separated line per group. Each group is expected to be
// sorted already.
func Format(groups [][]string) string {
	sorted := slices.Clone(groups)
	slices.SortStableFunc(sorted, func(a, b []string) int {
		return slices.Compare(a, b)
	})

	lines := make([]string, len(sorted))
	for i, g := range sorted {
		lines[i] = strings.Join(g, nameSeparator)
	}
	return strings.Join(lines, groupSeparator)
}
