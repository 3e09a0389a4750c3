package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"GlucoPlot/internal/usecase"
	"GlucoPlot/pkg/cache"
	"GlucoPlot/pkg/logger"
	"GlucoPlot/pkg/queue"
)

// Scheduler enqueues the periodic plot renders. A cache lock per tick keeps
// replicas sharing one Redis from rendering the same plot twice.
type Scheduler struct {
	cron    *cron.Cron
	queue   queue.QueueService
	locks   cache.Store
	lockTTL time.Duration
	log     *logger.Logger
	ctx     context.Context
}

// NewScheduler creates a Scheduler running in loc. locks may be nil.
func NewScheduler(ctx context.Context, q queue.QueueService, locks cache.Store, loc *time.Location, lockTTL time.Duration, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		queue:   q,
		locks:   locks,
		lockTTL: lockTTL,
		log:     log,
		ctx:     ctx,
	}
}

// RegisterAll registers the rolling daily and the weekly render.
func (s *Scheduler) RegisterAll(dailyCron, weeklyCron string) error {
	if _, err := s.cron.AddFunc(dailyCron, s.RunDailyNow); err != nil {
		return fmt.Errorf("register daily render: %w", err)
	}
	if _, err := s.cron.AddFunc(weeklyCron, s.RunWeeklyNow); err != nil {
		return fmt.Errorf("register weekly render: %w", err)
	}
	return nil
}

// AddTask registers a maintenance task. Errors are logged.
func (s *Scheduler) AddTask(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := fn(s.ctx); err != nil {
			s.log.Error("scheduled task failed", logger.String("task", name), logger.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("entries", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running tasks or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunDailyNow enqueues the rolling daily render immediately.
func (s *Scheduler) RunDailyNow() {
	s.enqueue(usecase.KindDaily, usecase.JobRenderDaily, usecase.RenderPayload{})
}

// RunWeeklyNow enqueues the current week's render immediately.
func (s *Scheduler) RunWeeklyNow() {
	s.enqueue(usecase.KindWeekly, usecase.JobRenderWeekly, usecase.RenderPayload{Offset: 0})
}

func (s *Scheduler) enqueue(name, jobType string, payload usecase.RenderPayload) {
	if s.locks != nil {
		key := cache.GenerateKey("scheduler", name)
		ok, err := s.locks.TryLock(s.ctx, key, s.lockTTL)
		if err != nil {
			s.log.Warn("scheduler lock failed", logger.String("task", name), logger.Error(err))
			return
		}
		if !ok {
			s.log.Debug("scheduled render already claimed", logger.String("task", name))
			return
		}
	}
	if err := s.queue.PublishMessage(s.ctx, jobType, payload); err != nil {
		s.log.Error("scheduled render enqueue failed",
			logger.String("task", name),
			logger.Error(err))
		return
	}
	s.log.Info("scheduled render enqueued", logger.String("task", name))
}
