// Package service wires the job queue, worker pool, job store and
// measurement pipeline behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/okian/fitmeasure/internal/adapters/mq/queue"
	workerpool "github.com/okian/fitmeasure/internal/adapters/mq/worker"
	"github.com/okian/fitmeasure/internal/adapters/repository"
	"github.com/okian/fitmeasure/internal/domain/dedupe"
	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/logger"
	"github.com/okian/fitmeasure/pkg/metrics"
)

// Default service configuration.
const (
	defaultWorkerCount    = 1
	defaultQueueSize      = 64
	defaultJobStoreSize   = 10000
	defaultRequestTimeout = 60 * time.Second
	systemMetricsInterval = 10 * time.Second
)

// Service implements the API dependencies for the measurement service.
type Service struct {
	mu sync.RWMutex

	// Core components
	processor  workerpool.Processor
	jobs       repository.Store
	keys       dedupe.Index
	jobQueue   jobqueue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	jobStoreSize   int
	requestTimeout time.Duration

	// State
	started bool
	stopCh  chan struct{}

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithJobStoreSize sets how many jobs are retained for status queries.
func WithJobStoreSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.jobStoreSize = size
		}
	}
}

// WithRequestTimeout bounds how long Measure waits for a result.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service that runs jobs through processor.
func New(processor workerpool.Processor, opts ...Option) *Service {
	s := &Service{
		processor:      processor,
		workerCount:    defaultWorkerCount,
		queueSize:      defaultQueueSize,
		jobStoreSize:   defaultJobStoreSize,
		requestTimeout: defaultRequestTimeout,
		stopCh:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.jobs = repository.NewMemoryStore(repository.WithCapacity(s.jobStoreSize))
	s.keys = dedupe.NewInMemoryIndex(dedupe.WithMaxSize(s.jobStoreSize))
	s.jobQueue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s.processor, s.jobs)
	s.workerPool.Start(ctx)

	s.stopCh = make(chan struct{})
	go s.collectSystemMetrics(s.stopCh)

	s.started = true
	s.logger.Info(ctx, "measurement service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("jobStoreSize", s.jobStoreSize),
	)
	return nil
}

// Stop gracefully shuts down the service. Jobs still queued are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping measurement service...")

	err := s.workerPool.Shutdown(ctx)
	close(s.stopCh)
	s.started = false

	s.logger.Info(ctx, "measurement service stopped")
	return err
}

// Submit registers and enqueues a job without waiting for it. A repeated
// idempotency key returns the job it first created, in its current state.
// The job is stored before its key is claimed, so a key never names a job
// that concurrent callers cannot yet see.
func (s *Service) Submit(ctx context.Context, in model.JobInput) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, ErrNotStarted
	}

	j := model.Job{ID: uuid.NewString(), Input: in, Status: model.StatusInQueue}
	if _, ok := logger.RequestID(ctx); !ok {
		ctx = logger.WithRequestID(ctx, j.ID)
	}

	if err := s.register(ctx, j); err != nil {
		return model.Job{}, err
	}

	if in.IdempotencyKey != "" {
		if prior, ok := s.claim(ctx, in.IdempotencyKey, j.ID); ok {
			_ = s.jobs.Remove(ctx, j.ID)
			s.logger.Debug(ctx, "idempotent resubmission",
				logger.String("job_id", prior.ID),
				logger.String("status", string(prior.Status)),
			)
			return prior, nil
		}
	}

	if err := s.enqueue(ctx, j); err != nil {
		if in.IdempotencyKey != "" {
			s.keys.Release(ctx, in.IdempotencyKey, j.ID)
		}
		_ = s.jobs.Remove(ctx, j.ID)
		return model.Job{}, err
	}

	s.logger.Debug(ctx, "job queued",
		logger.String("job_id", j.ID),
		logger.String("garment_type", in.GarmentType),
		logger.Int("image_chars", len(in.Image)),
	)
	return s.jobs.Get(ctx, j.ID)
}

// claim binds key to id. It reports the earlier job when key already names
// one. Jobs are stored before their key is claimed, so a bound job that is
// missing was evicted or rolled back and the key is rebound to id.
func (s *Service) claim(ctx context.Context, key, id string) (model.Job, bool) {
	for {
		bound, claimed := s.keys.Claim(ctx, key, id)
		if claimed {
			return model.Job{}, false
		}
		prior, err := s.jobs.Get(ctx, bound)
		if err == nil {
			return prior, true
		}
		s.keys.Release(ctx, key, bound)
	}
}

func (s *Service) register(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: stored by value
	if err := s.jobs.Create(ctx, j); err != nil {
		if errors.Is(err, repository.ErrFull) {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return fmt.Errorf("register job: %w", err)
	}
	return nil
}

func (s *Service) enqueue(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam: stored by value
	if err := s.jobQueue.Enqueue(ctx, j); err != nil {
		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrBusy, err)
		}
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Measure submits a job and waits for its outcome, at most the configured
// request timeout.
func (s *Service) Measure(ctx context.Context, in model.JobInput) (model.Outcome, error) {
	j, err := s.Submit(ctx, in)
	if err != nil {
		return model.Outcome{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	done, err := s.jobs.Wait(ctx, j.ID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn(ctx, "measurement timed out", logger.Duration("timeout", s.requestTimeout))
			return model.Outcome{}, fmt.Errorf("%w: job %s", ErrTimeout, j.ID)
		}
		return model.Outcome{}, err
	}
	if done.Output == nil {
		return model.Outcome{}, fmt.Errorf("job %s finished without output", j.ID)
	}
	return *done.Output, nil
}

// Status returns the current state of a job.
func (s *Service) Status(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return model.Job{}, ErrNotStarted
	}
	j, err := s.jobs.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"jobStoreSize":   s.jobStoreSize,
		"requestTimeout": s.requestTimeout.String(),
	}

	if s.started {
		queueLen := s.jobQueue.Len()
		counts := s.jobs.Count(context.Background())
		byStatus := make(map[string]int, len(counts))
		for status, n := range counts {
			byStatus[string(status)] = n
		}

		stats["queueLength"] = queueLen
		stats["busyWorkers"] = s.workerPool.Busy()
		stats["jobs"] = byStatus
		stats["idempotencyKeys"] = s.keys.Size()

		metrics.UpdateQueueSize(queueLen)
	}

	return stats
}

// collectSystemMetrics publishes runtime statistics until stop is closed.
func (s *Service) collectSystemMetrics(stop <-chan struct{}) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	var lastNumGC uint32
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			metrics.UpdateSystemMemoryUsage(ms.HeapAlloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
			// PauseNs is a ring of the most recent pauses.
			ring := uint32(len(ms.PauseNs))
			from := lastNumGC
			if ms.NumGC > ring {
				from = max(from, ms.NumGC-ring)
			}
			for n := from; n < ms.NumGC; n++ {
				metrics.RecordSystemGCPauseTime(float64(ms.PauseNs[n%ring]) / float64(time.Millisecond))
			}
			lastNumGC = ms.NumGC
		}
	}
}
