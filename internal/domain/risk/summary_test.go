package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/internal/domain/facility"
)

func TestAggregate_SumsSameCategory(t *testing.T) {
	t.Parallel()

	h := facility.CategoryHospital
	parts := []Partition{
		{Category: h, Inside: []facility.Record{{}, {}}, Outside: []facility.Record{{}}, Dropped: 1},
		{Category: h, Inside: []facility.Record{{}}, Dropped: 2},
		{Category: facility.CategoryDam, Outside: []facility.Record{{}}},
	}
	s := Aggregate(parts)

	assert.Equal(t, 3, s.Count(h))
	assert.Equal(t, 4, s.Total[h])
	assert.Equal(t, 3, s.Dropped[h])
	assert.Equal(t, 0, s.Count(facility.CategoryDam))
	assert.Equal(t, 1, s.Total[facility.CategoryDam])
	assert.Len(t, s.Inside, len(facility.AllCategories()))
	assert.Equal(t, 3, s.InsideTotal())
}

func TestAggregate_Deterministic(t *testing.T) {
	t.Parallel()

	parts := []Partition{{Category: facility.CategorySchool, Inside: []facility.Record{{}}}}
	assert.Equal(t, Aggregate(parts), Aggregate(parts))
	assert.Equal(t, Aggregate(nil), Aggregate([]Partition{}))
}

func TestSummary_Rows(t *testing.T) {
	t.Parallel()

	s := Aggregate([]Partition{{Category: facility.CategoryLandslideEvent, Inside: []facility.Record{{}}}})
	rows := s.Rows()
	require.Len(t, rows, 6)
	assert.Equal(t, facility.CategoryHospital, rows[0].Category)
	assert.Equal(t, "Hospitais", rows[0].Name)
	last := rows[len(rows)-1]
	assert.Equal(t, facility.CategoryLandslideEvent, last.Category)
	assert.Equal(t, 1, last.Inside)
}
