package dataset

import (
	"context"
	"io"
	"os"

	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// Source yields one raw table per call to Load. Implementations exist for
// local files, object storage and SQL queries.
type Source interface {
	Name() string
	Load(ctx context.Context) (*facility.Table, error)
}

// OpenFunc opens a byte stream for a StreamSource.
type OpenFunc func(ctx context.Context) (io.ReadCloser, error)

// StreamSource decodes the stream returned by Open on every Load.
type StreamSource struct {
	name    string
	open    OpenFunc
	options Options
}

// NewStreamSource builds a Source over an arbitrary stream.
func NewStreamSource(name string, open OpenFunc, opts Options) *StreamSource {
	return &StreamSource{name: name, open: open, options: opts}
}

// Name implements Source.
func (s *StreamSource) Name() string { return s.name }

// Load implements Source.
func (s *StreamSource) Load(ctx context.Context) (*facility.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "dataset load cancelled").WithDetail(s.name)
	}
	rc, err := s.open(ctx)
	if err != nil {
		if errors.GetCode(err) != errors.CodeUnknown {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to open dataset").WithDetail(s.name)
	}
	defer rc.Close()
	return Read(s.name, rc, s.options)
}

// NewFileSource reads the dataset from a local path.
func NewFileSource(name, path string, opts Options) *StreamSource {
	return NewStreamSource(name, func(context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatasetUnavailable, "failed to open dataset file").
				WithDetail(path)
		}
		return f, nil
	}, opts)
}
