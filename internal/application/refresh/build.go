package refresh

import (
	"github.com/turtacn/RiskOverlay/internal/config"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/database/postgres"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// ObjectStore opens dataset objects by key.
type ObjectStore interface {
	Source(name, objectKey string, opts dataset.Options) *dataset.StreamSource
}

// Backends holds the stores dataset sources may read from. Either may be nil
// when no configured dataset needs it.
type Backends struct {
	Objects ObjectStore
	DB      postgres.Querier
}

// DatasetsFromConfig turns the configured datasets into refresh inputs.
func DatasetsFromConfig(cfgs []config.DatasetConfig, b Backends) ([]Dataset, error) {
	out := make([]Dataset, 0, len(cfgs))
	for _, c := range cfgs {
		cat, err := facility.ParseCategory(c.Category)
		if err != nil {
			return nil, err
		}
		opts := dataset.OptionsFor(c.Delimiter, c.Encoding)

		var src dataset.Source
		switch c.Source {
		case config.SourceFile, "":
			src = dataset.NewFileSource(c.Name, c.Path, opts)
		case config.SourceMinIO:
			if b.Objects == nil {
				return nil, errors.Newf(errors.ErrCodeValidation, "dataset %s needs object storage", c.Name)
			}
			src = b.Objects.Source(c.Name, c.Path, opts)
		case config.SourcePostgres:
			if b.DB == nil {
				return nil, errors.Newf(errors.ErrCodeValidation, "dataset %s needs a database", c.Name)
			}
			src = postgres.NewQuerySource(c.Name, b.DB, c.Query)
		default:
			return nil, errors.Newf(errors.ErrCodeValidation, "dataset %s has unknown source %q", c.Name, c.Source)
		}

		out = append(out, Dataset{
			Source:   src,
			Category: cat,
			Filter:   facility.RowFilter{Column: c.Filter.Column, Values: c.Filter.Values},
			Columns: map[string]string{
				facility.FieldLabel:        c.LabelColumn,
				facility.FieldMunicipality: c.MunicipalityColumn,
			},
		})
	}
	return out, nil
}

// WatchPaths returns the local files of file-backed datasets.
func WatchPaths(cfgs []config.DatasetConfig) []string {
	var paths []string
	for _, c := range cfgs {
		if c.Source == config.SourceFile || c.Source == "" {
			paths = append(paths, c.Path)
		}
	}
	return paths
}
