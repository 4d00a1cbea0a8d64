package facility

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Normalizer converts Tables into Datasets using an AliasTable.
type Normalizer struct {
	aliases AliasTable
}

// NewNormalizer returns a Normalizer. A nil table uses DefaultAliases.
func NewNormalizer(aliases AliasTable) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	return &Normalizer{aliases: aliases}
}

// Normalize maps t onto canonical Records of category c.
//
// A table with no recognised longitude or latitude column yields an
// ErrCodeSchema error naming the missing fields. Rows with empty, non-numeric,
// non-finite or out-of-range coordinates are skipped and counted in
// Dataset.Dropped.
func (n *Normalizer) Normalize(t *Table, c Category) (*Dataset, error) {
	lonCol := n.aliases.Resolve(t, FieldLongitude)
	latCol := n.aliases.Resolve(t, FieldLatitude)

	var missing []string
	if lonCol == "" {
		missing = append(missing, FieldLongitude)
	}
	if latCol == "" {
		missing = append(missing, FieldLatitude)
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrCodeSchema, "dataset %s lacks coordinate columns", t.Name).
			WithDetail("missing: " + strings.Join(missing, ", "))
	}

	labelCol := n.aliases.Resolve(t, FieldLabel)
	muniCol := n.aliases.Resolve(t, FieldMunicipality)
	kindCol := n.aliases.Resolve(t, FieldKind)

	lonIdx, latIdx := t.Index(lonCol), t.Index(latCol)
	labelIdx, muniIdx, kindIdx := t.Index(labelCol), t.Index(muniCol), t.Index(kindCol)

	ds := &Dataset{
		Name:     t.Name,
		Category: c,
		Records:  make([]Record, 0, len(t.Rows)),
		Columns: map[string]string{
			FieldLongitude:    lonCol,
			FieldLatitude:     latCol,
			FieldLabel:        labelCol,
			FieldMunicipality: muniCol,
			FieldKind:         kindCol,
		},
	}

	for i, row := range t.Rows {
		rowNum := i + 1
		lon, okLon := ParseCoordinate(t.Cell(row, lonIdx))
		lat, okLat := ParseCoordinate(t.Cell(row, latIdx))
		if !okLon || !okLat || !ValidLongitude(lon) || !ValidLatitude(lat) {
			ds.Dropped++
			ds.DroppedRows = append(ds.DroppedRows, rowNum)
			continue
		}

		rec := Record{
			Category:     c,
			Longitude:    lon,
			Latitude:     lat,
			Municipality: strings.TrimSpace(t.Cell(row, muniIdx)),
			Kind:         strings.TrimSpace(t.Cell(row, kindIdx)),
			Row:          rowNum,
			Metadata:     make(map[string]string, len(t.Columns)),
		}
		rec.Label = strings.TrimSpace(t.Cell(row, labelIdx))
		if rec.Label == "" {
			rec.Label = rec.Municipality
		}
		if rec.Label == "" {
			rec.Label = fmt.Sprintf("row %d", rowNum)
		}
		for j, col := range t.Columns {
			if j == lonIdx || j == latIdx {
				continue
			}
			if v := t.Cell(row, j); v != "" {
				rec.Metadata[col] = v
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// CoercionWarning describes rows dropped from ds, or nil when none were.
func CoercionWarning(ds *Dataset) error {
	if ds == nil || ds.Dropped == 0 {
		return nil
	}
	return errors.Newf(errors.ErrCodeCoercion, "dataset %s: %d rows with unparseable coordinates dropped", ds.Name, ds.Dropped)
}

// ParseCoordinate parses a coordinate cell. Both "." and a lone "," are
// accepted as decimal separator. Empty, non-numeric and non-finite values
// report false.
func ParseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ValidLongitude reports whether v is within [-180, 180].
func ValidLongitude(v float64) bool { return v >= -180 && v <= 180 }

// ValidLatitude reports whether v is within [-90, 90].
func ValidLatitude(v float64) bool { return v >= -90 && v <= 90 }
