// Package worker drains the pick audit queue into the audit log.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/classroom/internal/domain/dedupe"
	"github.com/okian/classroom/internal/domain/model"
	"github.com/okian/classroom/pkg/logger"
	"github.com/okian/classroom/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 2
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.PickEvent

// Appender persists audit events.
type Appender interface {
	Append(ctx context.Context, e model.PickEvent) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue closes or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// AuditWorker writes each event once to an Appender.
type AuditWorker struct {
	queue    Queue
	appender Appender
	deduper  dedupe.Deduper
	name     string
	active   *atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewAuditWorker creates a worker reading from queue.
func NewAuditWorker(queue Queue, appender Appender, deduper dedupe.Deduper, opts ...Option) *AuditWorker {
	w := &AuditWorker{
		queue:    queue,
		appender: appender,
		deduper:  deduper,
		name:     "worker",
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.deduper == nil {
		w.deduper = dedupe.NewInMemoryDeduper()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *AuditWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing pick event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without draining the queue.
func (w *AuditWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *AuditWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// Done is closed when Run returns.
func (w *AuditWorker) Done() <-chan struct{} { return w.done }

func (w *AuditWorker) process(ctx context.Context, event Event) error { //nolint:gocritic // channel payload is passed by value
	start := time.Now()
	w.active.Add(1)
	defer func() {
		w.active.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.RecordQueueProcessingLatency(float64(time.Since(event.TS).Milliseconds()))
	}()

	if !event.Valid() {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "invalid_event")
		return fmt.Errorf("invalid pick event %q", event.EventID)
	}
	if w.deduper.SeenAndRecord(ctx, event.EventID) {
		metrics.RecordAuditDuplicate()
		return nil
	}
	if err := w.appender.Append(ctx, event); err != nil {
		w.deduper.Unrecord(ctx, event.EventID)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "append_error")
		return fmt.Errorf("append pick event %s: %w", event.EventID, err)
	}
	metrics.RecordAuditRecorded()
	return nil
}

// Pool runs several AuditWorkers over one queue and deduper.
type Pool struct {
	workers []*AuditWorker
	queue   Queue
	active  *atomic.Int64
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers.
func NewPool(workerCount int, queue Queue, appender Appender, deduper dedupe.Deduper, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	if deduper == nil {
		deduper = dedupe.NewInMemoryDeduper()
	}
	p := &Pool{
		workers: make([]*AuditWorker, workerCount),
		queue:   queue,
		active:  new(atomic.Int64),
		logger:  logger.Nop(),
	}
	cfg := &AuditWorker{logger: p.logger}
	for _, opt := range opts {
		opt(cfg)
	}
	p.logger = cfg.logger.Named("worker-pool")

	for i := 0; i < workerCount; i++ {
		w := NewAuditWorker(queue, appender, deduper,
			append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.active = p.active
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Active returns the number of workers processing an event.
func (p *Pool) Active() int { return int(p.active.Load()) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// UpdateMetrics publishes active and idle worker gauges.
func (p *Pool) UpdateMetrics() {
	active := p.Active()
	metrics.UpdateWorkerActiveCount(active)
	metrics.UpdateWorkerIdleCount(len(p.workers) - active)
}

// Shutdown closes the queue and waits for workers to drain it. Workers
// still running when ctx or the pool timeout expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not drain: %w", timedOut, drainCtx.Err())
	}
	return nil
}
