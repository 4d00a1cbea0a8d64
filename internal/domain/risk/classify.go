package risk

import (
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
)

// Classification is the result of testing one record against a region. The
// record is passed through unmodified.
type Classification struct {
	Record facility.Record `json:"record"`
	Inside bool            `json:"inside"`
}

// Classify tests rec against region. A nil or empty region classifies every
// point as outside. The same predicate applies to every category.
func Classify(region *Region, rec facility.Record) Classification {
	return Classification{Record: rec, Inside: region.Contains(rec.Point())}
}

// Partition is one dataset split by a region.
type Partition struct {
	Dataset  string            `json:"dataset"`
	Category facility.Category `json:"category"`
	Inside   []facility.Record `json:"inside"`
	Outside  []facility.Record `json:"outside"`
	// Dropped carries the dataset's coercion drop count through to the
	// summary.
	Dropped int `json:"dropped"`
}

// Total returns the number of classified records.
func (p Partition) Total() int { return len(p.Inside) + len(p.Outside) }

// PartitionDataset classifies every record of ds against region, keeping the
// source order within each subset.
func PartitionDataset(region *Region, ds *facility.Dataset) Partition {
	part := Partition{
		Dataset:  ds.Name,
		Category: ds.Category,
		Inside:   []facility.Record{},
		Outside:  []facility.Record{},
		Dropped:  ds.Dropped,
	}
	for _, rec := range ds.Records {
		if Classify(region, rec).Inside {
			part.Inside = append(part.Inside, rec)
		} else {
			part.Outside = append(part.Outside, rec)
		}
	}
	return part
}
