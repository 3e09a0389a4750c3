package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GlucoPlot/internal/domain/models"
	domrepo "GlucoPlot/internal/domain/repository"
)

// Broadcaster delivers glucose readings to live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, r models.GlucoseReading) error
}

// LivePipeline sits between ingestion and the live feed. It validates and
// throttles readings, drops ones older than the last forwarded reading so
// backfills do not replay on the feed, and buffers when the feed is failing.
type LivePipeline struct {
	out         Broadcaster
	metrics     domrepo.Metrics
	minInterval time.Duration
	bufSize     int
	bufCh       chan models.GlucoseReading
	stopCh      chan struct{}
	now         func() time.Time

	mu       sync.Mutex
	started  bool
	lastSent time.Time
	lastSeen time.Time // event time of the last forwarded reading
}

type PipelineOption func(*LivePipeline)

// WithMinInterval sets the minimum wall time between forwarded readings.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *LivePipeline) {
		if d >= 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets how many readings are kept while the feed is failing.
func WithBufferSize(n int) PipelineOption {
	return func(p *LivePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewLivePipeline(out Broadcaster, metrics domrepo.Metrics, opts ...PipelineOption) *LivePipeline {
	p := &LivePipeline{
		out:         out,
		metrics:     metrics,
		minInterval: time.Second,
		bufSize:     64,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.GlucoseReading, p.bufSize)
	return p
}

// Start launches background flushing of buffered readings.
func (p *LivePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case r := <-p.bufCh:
				if err := p.out.Broadcast(ctx, r); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.recordError("live_flush")
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						return
					}
					select {
					case p.bufCh <- r:
					default:
						p.recordError("live_buffer_drop")
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *LivePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.started = false
	close(p.stopCh)
}

// Process forwards r to the feed. Throttled and stale readings are dropped
// silently; a failing feed buffers r and returns the error.
func (p *LivePipeline) Process(ctx context.Context, r models.GlucoseReading) error {
	if err := validateReading(r); err != nil {
		p.recordError("live_validate")
		return err
	}
	if !p.allow(r.Time) {
		return nil
	}

	start := p.now()
	if err := p.out.Broadcast(ctx, r); err != nil {
		p.recordError("live_broadcast")
		select {
		case p.bufCh <- r:
		default:
			p.recordError("live_buffer_full")
		}
		return fmt.Errorf("live broadcast: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("live_broadcast", p.now().Sub(start).Seconds())
	}
	return nil
}

// Buffered returns the number of readings waiting for the feed.
func (p *LivePipeline) Buffered() int { return len(p.bufCh) }

func validateReading(r models.GlucoseReading) error {
	if r.Time.IsZero() {
		return fmt.Errorf("reading time missing")
	}
	if r.Mmol <= 0 {
		return fmt.Errorf("reading %.2f mmol/L not positive", r.Mmol)
	}
	return nil
}

func (p *LivePipeline) allow(eventTime time.Time) bool {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastSeen.IsZero() && !eventTime.After(p.lastSeen) {
		return false
	}
	if !p.lastSent.IsZero() && now.Sub(p.lastSent) < p.minInterval {
		return false
	}
	p.lastSeen, p.lastSent = eventTime, now
	return true
}

func (p *LivePipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}
