package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/fitmeasure/internal/domain/model"
)

func job(id string) model.Job {
	return model.Job{
		ID:     id,
		Input:  model.JobInput{Image: "AA==", GarmentType: "tshirt"},
		Status: model.StatusInQueue,
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
	if c := q.Capacity(); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}

	if err := q.Enqueue(ctx, job("job1")); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" {
		t.Errorf("expected job1, got %v", got.ID)
	}
	if got.Input.GarmentType != "tshirt" {
		t.Errorf("expected input to travel with the job, got %+v", got.Input)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for _, id := range []string{"job1", "job2"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Fatalf("expected enqueue of %s to succeed, got %v", id, err)
		}
	}

	if err := q.Enqueue(ctx, job("job3")); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull when full, got %v", err)
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := q.Enqueue(ctx, job("job1")); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected nothing queued, got %d", l)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(-1))
	if c := q.Capacity(); c != defaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultQueueCapacity, c)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers, perProducer = 8, 50

	var consumed sync.Map
	var count sync.WaitGroup
	count.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for j := range q.Dequeue(ctx) {
				consumed.Store(j.ID, true)
				count.Done()
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				jb := job(fmt.Sprintf("job%d_%d", id, j))
				for errors.Is(q.Enqueue(ctx, jb), ErrFull) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		count.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumers did not receive every job")
	}

	n := 0
	consumed.Range(func(_, _ any) bool {
		n++
		return true
	})
	if n != producers*perProducer {
		t.Errorf("expected %d distinct jobs, got %d", producers*perProducer, n)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for _, id := range []string{"job1", "job2"} {
		if err := q.Enqueue(ctx, job(id)); err != nil {
			t.Fatalf("expected enqueue to succeed, got %v", err)
		}
	}

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}

	if err := q.Enqueue(ctx, job("job3")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after closing, got %v", err)
	}

	// Jobs accepted before Close are still delivered, then the channel closes.
	var ids []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(ids) != 2 {
					t.Errorf("expected 2 drained jobs, got %v", ids)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			ids = append(ids, j.ID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
