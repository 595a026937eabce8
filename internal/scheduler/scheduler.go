package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/sitedir/internal/icon"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

const (
	DefaultIconSchedule      = "@daily"
	DefaultReconcileSchedule = "@hourly"
	DefaultJobTimeout        = 30 * time.Minute

	// ScheduleOff keeps a job out of cron. A disabled icon refresh can still
	// be triggered manually.
	ScheduleOff = "off"
)

// TargetLister returns the URLs whose icons should be kept fresh.
type TargetLister interface {
	IconTargets(ctx context.Context) ([]string, error)
}

// BatchRunner refreshes a set of domains under a rate policy.
type BatchRunner interface {
	RefreshAll(ctx context.Context, domains []string) icon.BatchReport
	Policy() icon.RatePolicy
}

// Reconciler repairs documents left inconsistent by interrupted workflows.
type Reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}

// Status is what the scheduler last did, for /infra.
type Status struct {
	IconRefreshRunning bool              `json:"icon_refresh_running"`
	LastIconRefresh    time.Time         `json:"last_icon_refresh,omitzero"`
	LastIconReport     *icon.BatchReport `json:"-"`
	IconPolicy         *icon.RatePolicy  `json:"-"` // nil without a batch runner
	LastReconcile      time.Time         `json:"last_reconcile,omitzero"`
	LastReconciled     int               `json:"last_reconciled"`
}

// Scheduler runs the periodic icon refresh and the submission queue
// reconciliation on cron schedules. Either job is skipped when its
// dependency is nil.
type Scheduler struct {
	targets    TargetLister
	batch      BatchRunner
	reconciler Reconciler
	cron       *cron.Cron
	logger     logger.Logger

	iconSchedule      string
	reconcileSchedule string
	jobTimeout        time.Duration

	trigger chan struct{}
	running atomic.Bool
	baseCtx context.Context

	mu     sync.Mutex
	status Status
}

type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, mostly for tests.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

func WithIconSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.iconSchedule = spec
		}
	}
}

func WithReconcileSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.reconcileSchedule = spec
		}
	}
}

// WithJobTimeout bounds a single scheduled run.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

func New(targets TargetLister, batch BatchRunner, reconciler Reconciler, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		targets:           targets,
		batch:             batch,
		reconciler:        reconciler,
		logger:            log,
		iconSchedule:      DefaultIconSchedule,
		reconcileSchedule: DefaultReconcileSchedule,
		jobTimeout:        DefaultJobTimeout,
		trigger:           make(chan struct{}, 1),
		baseCtx:           context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s
}

// Start registers the jobs and launches cron plus the manual trigger loop.
// Jobs stop being started once ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.baseCtx = ctx

	fields := []logger.Field{
		logger.String("icon_schedule", s.iconSchedule),
		logger.String("reconcile_schedule", s.reconcileSchedule),
	}

	if s.targets != nil && s.batch != nil {
		if s.iconSchedule != ScheduleOff {
			id, err := s.cron.AddFunc(s.iconSchedule, func() { s.refreshIcons() })
			if err != nil {
				return fmt.Errorf("icon refresh schedule %q: %w", s.iconSchedule, err)
			}
			next := s.cron.Entry(id).Schedule.Next(time.Now())
			fields = append(fields, logger.Time("next_icon_refresh", next))
		}
		go s.triggerLoop(ctx)
	}

	if s.reconciler != nil && s.reconcileSchedule != ScheduleOff {
		if _, err := s.cron.AddFunc(s.reconcileSchedule, func() {
			if err := s.reconcile(); err != nil {
				s.logger.Warn("reconciliation failed", logger.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("reconcile schedule %q: %w", s.reconcileSchedule, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", fields...)
	return nil
}

// Stop halts cron. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// TriggerIconRefresh asks for an immediate icon refresh. It returns false
// when one is already queued or running.
func (s *Scheduler) TriggerIconRefresh() bool {
	if s.running.Load() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// RunOnce runs every configured job once, in order.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs error
	if s.targets != nil && s.batch != nil {
		if report, ran := s.runIconRefresh(ctx); ran && report.Err != nil {
			errs = multierr.Append(errs, report.Err)
		}
	}
	if s.reconciler != nil {
		errs = multierr.Append(errs, s.reconcileWith(ctx))
	}
	return errs
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.IconRefreshRunning = s.running.Load()
	if s.batch != nil {
		p := s.batch.Policy()
		st.IconPolicy = &p
	}
	return st
}

func (s *Scheduler) triggerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.logger.Info("manual icon refresh triggered")
			s.refreshIcons()
		}
	}
}

func (s *Scheduler) refreshIcons() {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
	defer cancel()
	s.runIconRefresh(ctx)
}

// runIconRefresh runs one batch unless another is in flight.
func (s *Scheduler) runIconRefresh(ctx context.Context) (icon.BatchReport, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("icon refresh already running, skipping")
		return icon.BatchReport{}, false
	}
	defer s.running.Store(false)

	targets, err := s.targets.IconTargets(ctx)
	if err != nil {
		s.logger.Error("cannot list icon targets", logger.Error(err))
		return icon.BatchReport{Err: err}, true
	}

	report := s.batch.RefreshAll(ctx, targets)
	if report.Err != nil {
		s.logger.Warn("icon refresh finished with failures",
			logger.Int("failed", report.Failed),
			logger.Error(report.Err))
	}

	s.mu.Lock()
	s.status.LastIconRefresh = time.Now()
	s.status.LastIconReport = &report
	s.mu.Unlock()

	return report, true
}

func (s *Scheduler) reconcile() error {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.jobTimeout)
	defer cancel()
	return s.reconcileWith(ctx)
}

func (s *Scheduler) reconcileWith(ctx context.Context) error {
	removed, err := s.reconciler.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	s.mu.Lock()
	s.status.LastReconcile = time.Now()
	s.status.LastReconciled = removed
	s.mu.Unlock()
	return nil
}
