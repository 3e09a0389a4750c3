package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"GlucoPlot/pkg/logger"
)

// registry holds jobs by message type and runs them.
type registry struct {
	logger *logger.Logger
	mu     sync.RWMutex
	jobs   map[string]Job
}

func (r *registry) init(lgr *logger.Logger) {
	if lgr == nil {
		lgr = logger.NewNop()
	}
	r.logger = lgr
	r.jobs = make(map[string]Job)
}

// RegisterJob registers a single job.
func (r *registry) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}

	r.jobs[job.Type()] = job
	r.logger.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// RegisterJobs registers multiple jobs.
func (r *registry) RegisterJobs(jobs []Job) {
	for _, job := range jobs {
		r.RegisterJob(job)
	}
}

func (r *registry) job(msgType string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[msgType]
	return j, ok
}

// run handles msg and reports whether it should be retried.
func (r *registry) run(ctx context.Context, msg Message) (retry bool) {
	job, exists := r.job(msg.Type)
	if !exists {
		r.logger.Error("no job found",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return false
	}

	start := time.Now()
	err := job.Handle(ctx, msg.Payload)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		r.logger.Debug("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", elapsed))
		return false
	case errors.Is(err, ErrPermanent):
		r.logger.Warn("message dropped",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Error(err))
		return false
	case errors.Is(err, context.Canceled):
		r.logger.Warn("message cancelled",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", elapsed))
		return false
	default:
		r.logger.Error("message processing error",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Int("attempt", msg.Attempts+1),
			logger.Error(err))
		return true
	}
}
