// Package facility models the point datasets (hospitals, basic health units,
// indigenous settlements, schools, dams and landslide events) and turns raw
// delimited tables into canonical Records.
package facility

import (
	"github.com/paulmach/orb"
)

// Record is one geocoded facility or event. Records are built once per load
// and never mutated afterwards.
type Record struct {
	Category     Category          `json:"category"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
	Label        string            `json:"label"`
	Municipality string            `json:"municipality,omitempty"`
	Kind         string            `json:"kind,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	// Row is the 1-based data row in the source table.
	Row int `json:"row"`
}

// Point returns the record position in (longitude, latitude) order.
func (r Record) Point() orb.Point {
	return orb.Point{r.Longitude, r.Latitude}
}

// Table is a raw delimited dataset: a header and string cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Cell returns row[col], or "" when the row is short.
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// Dataset is the normalized form of one Table.
type Dataset struct {
	Name     string
	Category Category
	Records  []Record
	// Dropped counts rows whose coordinates could not be coerced.
	Dropped int
	// DroppedRows lists the 1-based rows counted in Dropped.
	DroppedRows []int
	// Columns records which source columns were mapped to each canonical
	// field.
	Columns map[string]string
}
