package descriptives

import "sort"

// Sort orders for frequency tables
const (
	SortAppearance = "appearance"
	SortCount      = "count"
)

// FrequencyRow is one category of a frequency table
type FrequencyRow struct {
	Category          string
	Count             int
	Percent           float64
	ValidPercent      float64
	CumulativePercent float64
}

// FrequencyTable is the distribution of a categorical variable
type FrequencyTable struct {
	Rows    []FrequencyRow
	Valid   int
	Missing int
	Total   int
}

// Frequencies tabulates labels in first-appearance order of levels, or by descending
// count (ties kept in appearance order) when sortBy is "count". Percent is relative to
// all rows including missing, valid percent to non-missing rows.
func Frequencies(levels []string, counts []int, missing int, sortBy string) FrequencyTable {
	t := FrequencyTable{Missing: missing}
	for _, c := range counts {
		t.Valid += c
	}
	t.Total = t.Valid + missing

	order := make([]int, len(levels))
	for i := range order {
		order[i] = i
	}
	if sortBy == SortCount {
		sort.SliceStable(order, func(a, b int) bool {
			return counts[order[a]] > counts[order[b]]
		})
	}

	var cum float64
	for _, i := range order {
		row := FrequencyRow{Category: levels[i], Count: counts[i]}
		if t.Total > 0 {
			row.Percent = 100 * float64(counts[i]) / float64(t.Total)
		}
		if t.Valid > 0 {
			row.ValidPercent = 100 * float64(counts[i]) / float64(t.Valid)
		}
		cum += row.ValidPercent
		row.CumulativePercent = cum
		t.Rows = append(t.Rows, row)
	}
	return t
}
