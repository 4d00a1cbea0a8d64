package risk

import (
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
)

// Summary holds per-category counts. Every category is present, with zero
// when no dataset of that category was classified.
type Summary struct {
	Inside  map[facility.Category]int `json:"inside"`
	Total   map[facility.Category]int `json:"total"`
	Dropped map[facility.Category]int `json:"dropped"`
}

// SummaryRow is one category line in display order.
type SummaryRow struct {
	Category facility.Category `json:"category"`
	Name     string            `json:"name"`
	Inside   int               `json:"inside"`
	Total    int               `json:"total"`
	Dropped  int               `json:"dropped"`
}

// Aggregate derives a Summary from partitions alone. Several partitions of
// the same category add up.
func Aggregate(parts []Partition) Summary {
	s := Summary{
		Inside:  make(map[facility.Category]int),
		Total:   make(map[facility.Category]int),
		Dropped: make(map[facility.Category]int),
	}
	for _, c := range facility.AllCategories() {
		s.Inside[c] = 0
		s.Total[c] = 0
		s.Dropped[c] = 0
	}
	for _, p := range parts {
		s.Inside[p.Category] += len(p.Inside)
		s.Total[p.Category] += p.Total()
		s.Dropped[p.Category] += p.Dropped
	}
	return s
}

// Count returns the inside count for c.
func (s Summary) Count(c facility.Category) int {
	return s.Inside[c]
}

// InsideTotal returns the inside count across all categories.
func (s Summary) InsideTotal() int {
	n := 0
	for _, v := range s.Inside {
		n += v
	}
	return n
}

// Rows lists the known categories in display order.
func (s Summary) Rows() []SummaryRow {
	rows := make([]SummaryRow, 0, len(s.Inside))
	for _, c := range facility.AllCategories() {
		rows = append(rows, SummaryRow{
			Category: c,
			Name:     c.DisplayName(),
			Inside:   s.Inside[c],
			Total:    s.Total[c],
			Dropped:  s.Dropped[c],
		})
	}
	return rows
}
