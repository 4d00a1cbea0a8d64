package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/turtacn/RiskOverlay/internal/infrastructure/monitoring/logging"
)

// Locker keeps replicas from refreshing at the same time. *redis.Mutex
// satisfies it.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Trigger reasons.
const (
	ReasonCron  = "cron"
	ReasonWatch = "watch"
	ReasonStart = "startup"
)

// Scheduler runs refresh-and-publish cycles on a cron spec and on demand.
// Runs never overlap within a process; a Locker extends that across
// processes.
type Scheduler struct {
	service   Service
	publisher Publisher
	locker    Locker
	timeout   time.Duration
	logger    logging.Logger

	cron *cron.Cron
	run  sync.Mutex

	mu   sync.RWMutex
	last *Snapshot
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPublisher publishes every snapshot to p.
func WithPublisher(p Publisher) SchedulerOption {
	return func(s *Scheduler) { s.publisher = p }
}

// WithLocker guards each run with l.
func WithLocker(l Locker) SchedulerOption {
	return func(s *Scheduler) { s.locker = l }
}

// WithRunTimeout bounds the refresh of each run. Publishing the result gets
// a fresh budget of the same length.
func WithRunTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.timeout = d }
}

// NewScheduler returns a Scheduler over svc.
func NewScheduler(svc Service, log logging.Logger, opts ...SchedulerOption) *Scheduler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	s := &Scheduler{service: svc, logger: log.Named("scheduler")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules runs on spec (standard five-field cron) until Stop.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))
	if _, err := c.AddFunc(spec, func() { s.RunOnce(ctx, ReasonCron) }); err != nil {
		return fmt.Errorf("scheduler: invalid cron spec %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("scheduler started", logging.String("cron", spec))
	return nil
}

// Stop halts the cron and waits for a running job.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunOnce refreshes and publishes. It returns nil without refreshing when
// another run holds the lock.
func (s *Scheduler) RunOnce(ctx context.Context, reason string) *Snapshot {
	if !s.run.TryLock() {
		s.logger.Info("refresh already running, skipped", logging.String("reason", reason))
		return nil
	}
	defer s.run.Unlock()

	parent := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx)
		if err != nil {
			s.logger.Warn("refresh lock unavailable, skipped", logging.String("reason", reason), logging.Err(err))
			return nil
		}
		if !ok {
			s.logger.Info("refresh held by another replica, skipped", logging.String("reason", reason))
			return nil
		}
		defer func() {
			if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release refresh lock", logging.Err(err))
			}
		}()
	}

	snap, err := s.service.Refresh(ctx, Options{})
	if err != nil {
		s.logger.Warn("scheduled refresh aborted", logging.String("reason", reason), logging.Err(err))
		return nil
	}
	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()

	if s.publisher != nil {
		pctx, cancel := s.bounded(parent)
		// Publish errors are already logged per sink.
		_ = s.publisher.Publish(pctx, snap)
		cancel()
	}
	s.logger.Info("scheduled refresh done", logging.String("reason", reason), logging.SnapshotID(snap.ID))
	return snap
}

func (s *Scheduler) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// OnChange returns a watcher callback that triggers a run.
func (s *Scheduler) OnChange(ctx context.Context) func(changed []string) {
	return func(changed []string) {
		s.logger.Info("dataset files changed", logging.Strings("files", changed))
		s.RunOnce(ctx, ReasonWatch)
	}
}

// Last returns the most recent scheduled snapshot, or nil.
func (s *Scheduler) Last() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(kvFields(keysAndValues), logging.Err(err))...)
}

func kvFields(kv []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logging.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
