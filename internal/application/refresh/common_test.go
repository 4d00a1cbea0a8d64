package refresh

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/turtacn/RiskOverlay/internal/domain/alert"
	"github.com/turtacn/RiskOverlay/internal/domain/facility"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/dataset"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/feed"
	"github.com/turtacn/RiskOverlay/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/RiskOverlay/pkg/errors"
)

// -----------------------------------------------------------------------
// Mock: dataset source
// -----------------------------------------------------------------------

type stubSource struct {
	name  string
	table *facility.Table
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Load(ctx context.Context) (*facility.Table, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

// csvSource parses semicolon-separated text the same way file datasets are
// read.
func csvSource(name, text string) dataset.Source {
	return dataset.NewStreamSource(name, func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}, dataset.OptionsFor(";", "utf-8"))
}

// -----------------------------------------------------------------------
// Mock: feed
// -----------------------------------------------------------------------

type stubFetcher struct {
	raws  []alert.Raw
	err   error
	calls int
}

func (f *stubFetcher) Fetch(ctx context.Context) (*feed.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &feed.Result{URL: "stub://feed", Raws: f.raws, FetchedAt: time.Unix(0, 0).UTC(), Attempts: 1}, nil
}

var errFeedDown = errors.New(errors.ErrCodeFeedUnavailable, "alert feed unavailable")

func square(id string, minLon, minLat, maxLon, maxLat float64) alert.Raw {
	return alert.Raw{
		ID: id,
		Geometry: orb.Polygon{{
			{minLon, minLat}, {maxLon, minLat}, {maxLon, maxLat}, {minLon, maxLat}, {minLon, minLat},
		}},
		Properties: map[string]interface{}{"description": "alert " + id},
	}
}

// -----------------------------------------------------------------------
// Mock: publishing
// -----------------------------------------------------------------------

type recordingProducer struct {
	keys []string
	envs []*kafka.EventEnvelope
	err  error
}

func (p *recordingProducer) PublishEvent(_ context.Context, key string, env *kafka.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, key)
	p.envs = append(p.envs, env)
	return nil
}

type recordingChannel struct {
	payloads [][]byte
	err      error
}

func (c *recordingChannel) Publish(_ context.Context, payload []byte) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.payloads = append(c.payloads, payload)
	return 1, nil
}

type recordingStore struct {
	objects map[string][]byte
	err     error
}

func (s *recordingStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if s.err != nil {
		return s.err
	}
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return nil
}

type countingPublisher struct {
	mu    sync.Mutex
	snaps []*Snapshot
	err   error
}

func (p *countingPublisher) Publish(_ context.Context, snap *Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return p.err
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snaps)
}

// -----------------------------------------------------------------------
// Mock: locker
// -----------------------------------------------------------------------

type stubLocker struct {
	grant   bool
	err     error
	locks   int
	unlocks int
}

func (l *stubLocker) TryLock(context.Context) (bool, error) {
	l.locks++
	return l.grant, l.err
}

func (l *stubLocker) Unlock(context.Context) error {
	l.unlocks++
	return nil
}
