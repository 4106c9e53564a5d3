package repository

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/fitmeasure/internal/domain/model"
	"github.com/okian/fitmeasure/pkg/metrics"
)

const defaultCapacity = 10000

type entry struct {
	job  model.Job
	elem *list.Element
	done chan struct{} // closed once the job is terminal
}

// MemoryStore is a bounded in-memory Store. When full it evicts the oldest
// finished job; queued and running jobs are never evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[string]*entry
	order    *list.List // job ids, oldest first
	capacity int
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty job store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[string]*entry),
		order:    list.New(),
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateJobStoreSize(0)
	return s
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, j model.Job) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[j.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, j.ID)
	}
	if len(s.byID) >= s.capacity && !s.evictLocked() {
		return ErrFull
	}

	j.Status = model.StatusInQueue
	j.Output = nil
	if j.CreatedAt.IsZero() {
		j.CreatedAt = s.now()
	}
	e := &entry{job: j, done: make(chan struct{})}
	e.elem = s.order.PushBack(j.ID)
	s.byID[j.ID] = e
	metrics.UpdateJobStoreSize(len(s.byID))
	return nil
}

// evictLocked drops the oldest terminal job. It reports false when every
// retained job is still pending.
func (s *MemoryStore) evictLocked() bool {
	for el := s.order.Front(); el != nil; el = el.Next() {
		id, _ := el.Value.(string)
		if e := s.byID[id]; e.job.Status.Terminal() {
			s.order.Remove(el)
			delete(s.byID, id)
			metrics.RecordJobStoreEviction()
			return true
		}
	}
	return false
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[id]
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.job, nil
}

// MarkInProgress implements Store.
func (s *MemoryStore) MarkInProgress(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.job.Status != model.StatusInQueue {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.job.Status)
	}
	e.job.Status = model.StatusInProgress
	e.job.StartedAt = s.now()
	return nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(_ context.Context, id string, o model.Outcome) error { //nolint:gocritic // hugeParam: stored by value
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.job.Status)
	}
	e.job.Status = model.StatusFailed
	if o.Success {
		e.job.Status = model.StatusCompleted
	}
	e.job.Output = &o
	e.job.CompletedAt = s.now()
	close(e.done)
	return nil
}

// Wait implements Store.
func (s *MemoryStore) Wait(ctx context.Context, id string) (model.Job, error) {
	s.mu.RLock()
	e, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return model.Job{}, fmt.Errorf("wait for job %s: %w", id, ctx.Err())
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return e.job, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.order.Remove(e.elem)
	delete(s.byID, id)
	metrics.UpdateJobStoreSize(len(s.byID))
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) map[model.JobStatus]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.JobStatus]int, 4)
	for _, e := range s.byID {
		counts[e.job.Status]++
	}
	return counts
}
