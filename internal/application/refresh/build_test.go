package refresh

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

type stubObjects struct {
	keys []string
}

func (s *stubObjects) Source(name, key string, opts dataset.Options) *dataset.StreamSource {
	s.keys = append(s.keys, key)
	return dataset.NewFileSource(name, key, opts)
}

type nilQuerier struct{}

func (nilQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New(errors.ErrCodeDatabaseError, "no database")
}

func TestDatasetsFromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "hospitais.csv")
	require.NoError(t, os.WriteFile(path, []byte("nome_hosp;x;y\nH;-51.5;-29.5\n"), 0o600))

	objects := &stubObjects{}
	cfgs := []config.DatasetConfig{
		{
			Name: "hospitals", Category: "hospital", Source: config.SourceFile, Path: path,
			Delimiter: ";", Encoding: "utf-8", LabelColumn: "nome_hosp",
		},
		{Name: "dams", Category: "dam", Source: config.SourceMinIO, Path: "dams.csv", Delimiter: ";", Encoding: "latin1",
			Filter: config.FilterConfig{Column: "classe", Values: []string{"Alto"}}},
		{Name: "schools", Category: "school", Source: config.SourcePostgres, Query: "SELECT 1"},
	}

	out, err := DatasetsFromConfig(cfgs, Backends{Objects: objects, DB: nilQuerier{}})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, facility.CategoryHospital, out[0].Category)
	assert.Equal(t, "nome_hosp", out[0].Columns[facility.FieldLabel])
	assert.Equal(t, []string{"dams.csv"}, objects.keys)
	assert.Equal(t, "classe", out[1].Filter.Column)
	assert.Equal(t, "schools", out[2].Source.Name())

	snap, err := NewRefresher(out[:1], Config{}).Refresh(context.Background(), Options{})
	require.NoError(t, err)
	p := snap.Partition(facility.CategoryHospital)
	require.Len(t, p.Outside, 1)
	assert.Equal(t, "H", p.Outside[0].Label)
}

func TestDatasetsFromConfig_MissingBackend(t *testing.T) {
	t.Parallel()

	_, err := DatasetsFromConfig([]config.DatasetConfig{
		{Name: "dams", Category: "dam", Source: config.SourceMinIO, Path: "dams.csv"},
	}, Backends{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = DatasetsFromConfig([]config.DatasetConfig{
		{Name: "x", Category: "volcano", Source: config.SourceFile, Path: "x.csv"},
	}, Backends{})
	require.Error(t, err)
}

func TestWatchPaths(t *testing.T) {
	t.Parallel()

	paths := WatchPaths([]config.DatasetConfig{
		{Name: "a", Source: config.SourceFile, Path: "a.csv"},
		{Name: "b", Source: config.SourceMinIO, Path: "b.csv"},
		{Name: "c", Path: "c.csv"},
	})
	assert.Equal(t, []string{"a.csv", "c.csv"}, paths)
}
