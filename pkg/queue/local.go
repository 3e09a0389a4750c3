package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"GlucoPlot/pkg/logger"
)

// LocalQueue runs jobs in process on a buffered channel. Used when Redis is
// disabled; messages do not survive a restart.
type LocalQueue struct {
	registry
	config  *QueueConfig
	ch      chan Message
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	startMu sync.Mutex
	started bool
}

var _ Runner = (*LocalQueue)(nil)

func NewLocalQueue(lgr *logger.Logger, config *QueueConfig) *LocalQueue {
	cfg := config.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		config: cfg,
		ch:     make(chan Message, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	q.registry.init(lgr)
	return q
}

func (q *LocalQueue) Start() error {
	q.startMu.Lock()
	defer q.startMu.Unlock()
	if q.started {
		return fmt.Errorf("queue already running")
	}
	q.started = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("local queue started", logger.Int("workers", q.config.Workers))
	return nil
}

func (q *LocalQueue) Stop(ctx context.Context) error {
	q.cancel()
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// PublishMessage enqueues without blocking; a full buffer is an error.
func (q *LocalQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	if _, ok := q.job(msgType); !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	msg, err := newMessage(uuid.NewString(), msgType, payload)
	if err != nil {
		return err
	}
	return q.push(ctx, msg)
}

func (q *LocalQueue) push(ctx context.Context, msg Message) error {
	select {
	case q.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return fmt.Errorf("queue stopped")
	default:
		return fmt.Errorf("queue full (%d)", cap(q.ch))
	}
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.ch:
			if q.run(q.ctx, msg) {
				q.retry(msg)
			}
		}
	}
}

func (q *LocalQueue) retry(msg Message) {
	if msg.Attempts >= q.config.RetryLimit {
		q.logger.Error("max retries reached", logger.String("id", msg.ID), logger.String("type", msg.Type))
		return
	}
	msg.Attempts++
	time.AfterFunc(q.config.RetryDelay, func() {
		if err := q.push(context.Background(), msg); err != nil {
			q.logger.Error("requeue failed", logger.String("id", msg.ID), logger.Error(err))
		}
	})
}
