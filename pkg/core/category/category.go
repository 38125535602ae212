package category

import (
	"sort"

	"github.com/jakechorley/category-allocator/pkg/core/model"
)

// ExtractDistinctLabels returns the sorted, distinct, non-blank labels found in
// the given field across all rows. A field holding a list contributes each of
// its elements.
func ExtractDistinctLabels(rows []model.Row, field string) []string {
	seen := make(map[string]bool)
	labels := make([]string, 0)

	for _, row := range rows {
		for _, label := range row.Labels(field) {
			if seen[label] {
				continue
			}
			seen[label] = true
			labels = append(labels, label)
		}
	}

	sort.Strings(labels)
	return labels
}

// FilterByLabel returns copies of the rows whose field equals label (scalar
// cells) or contains it (list cells). Comparison is on trimmed text.
func FilterByLabel(rows []model.Row, field, label string) []model.Row {
	filtered := make([]model.Row, 0)
	for _, row := range rows {
		if matches(row, field, label) {
			filtered = append(filtered, row.Clone())
		}
	}
	return filtered
}

func matches(row model.Row, field, label string) bool {
	for _, candidate := range row.Labels(field) {
		if candidate == label {
			return true
		}
	}
	return false
}
