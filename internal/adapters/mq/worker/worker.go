// Package worker drains the job queue and runs each job through the
// measurement pipeline.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
	"github.com/okian/fitmeasure/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 1
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Processor runs a job to completion. Failures are reported inside the
// Outcome, never as a panic or error.
type Processor interface {
	Process(ctx context.Context, j model.Job) model.Outcome
}

// Tracker records job status transitions.
type Tracker interface {
	MarkInProgress(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, o model.Outcome) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Job
}

// Worker processes jobs and records their outcome.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in hand.
	Shutdown(ctx context.Context) error
}

type observer interface {
	busy(delta int)
	processed()
}

// InMemoryWorker implements Worker for processing jobs.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	tracker   Tracker
	name      string
	observer  observer

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, tracker Tracker, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		tracker:   tracker,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.processJob(ctx, j); err != nil {
				w.logger.Error(ctx, "error processing job", logger.String("job_id", j.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob handles a single job.
func (w *InMemoryWorker) processJob(ctx context.Context, j model.Job) (err error) { //nolint:gocritic // hugeParam: jobs travel by value through the channel
	start := time.Now()
	if w.observer != nil {
		w.observer.busy(1)
		defer w.observer.busy(-1)
	}
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	ctx = logger.WithRequestID(ctx, j.ID)

	if err := w.tracker.MarkInProgress(ctx, j.ID); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "tracker_error")
		return fmt.Errorf("mark job %s in progress: %w", j.ID, err)
	}

	outcome := w.run(ctx, j)
	outcome.Duration = time.Since(start)

	if err := w.tracker.Complete(ctx, j.ID, outcome); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "tracker_error")
		return fmt.Errorf("complete job %s: %w", j.ID, err)
	}
	if w.observer != nil {
		w.observer.processed()
	}

	w.logger.Debug(ctx, "job finished",
		logger.Bool("success", outcome.Success),
		logger.Bool("cached", outcome.Cached),
		logger.Duration("duration", outcome.Duration),
	)
	return nil
}

// run invokes the processor and turns an escaped panic into a failure so
// the job never stays IN_PROGRESS.
func (w *InMemoryWorker) run(ctx context.Context, j model.Job) (o model.Outcome) { //nolint:gocritic // hugeParam: see processJob
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			metrics.RecordErrorByComponent("worker", "panic")
			w.logger.Error(ctx, "processor panicked", logger.Any("panic", r))
			o = model.Failed(model.FailureUnhandled, fmt.Sprint(r))
		}
	}()
	return w.processor.Process(ctx, j)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	// Shutdown control
	shutdown chan struct{}
	stopped  atomic.Bool

	// Metrics tracking
	busyCount         atomic.Int64
	processedCount    atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count yields a single
// worker, so jobs run one at a time.
func NewPool(workerCount int, queue Queue, processor Processor, tracker Tracker) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			processor,
			tracker,
			WithName("worker-"+strconv.Itoa(i)),
			withObserver(pool),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerBusyCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Busy returns the number of workers currently processing a job.
func (p *Pool) Busy() int {
	return int(p.busyCount.Load())
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) busy(delta int) {
	metrics.UpdateWorkerBusyCount(int(p.busyCount.Add(int64(delta))))
}

func (p *Pool) processed() {
	p.processedCount.Add(1)
}

// startMetricsUpdater periodically publishes the pool throughput.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(p.processedCount.Swap(0)) / elapsed)
	}
	p.lastProcessedTime = now
}

// Shutdown closes the queue, then waits for every worker to finish the
// job in hand. Jobs still queued are not processed.
func (p *Pool) Shutdown(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}

	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)
	for _, worker := range p.workers {
		select {
		case <-worker.shutdown:
		default:
			close(worker.shutdown)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerBusyCount(0)

	if timedOut {
		return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}
