package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/fitmeasure/internal/domain/model"
)

func newJob(id string) model.Job {
	return model.Job{ID: id, Input: model.JobInput{Image: "AA==", GarmentType: "pants"}}
}

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return t0.Add(time.Duration(n) * time.Second)
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithClock(fixedClock()))

	if err := store.Create(ctx, newJob("job1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	j, err := store.Get(ctx, "job1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != model.StatusInQueue {
		t.Errorf("expected IN_QUEUE, got %s", j.Status)
	}
	if j.CreatedAt.IsZero() {
		t.Error("expected creation time to be set")
	}

	if err := store.MarkInProgress(ctx, "job1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.MarkInProgress(ctx, "job1"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a second start, got %v", err)
	}

	out := model.Succeeded(model.Result{Garment: model.Pants, Size: model.SizeSM}, "data:image/png;base64,AA==")
	if err := store.Complete(ctx, "job1", out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	j, _ = store.Get(ctx, "job1")
	if j.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", j.Status)
	}
	if j.Output == nil || j.Output.Result.Size != model.SizeSM {
		t.Errorf("expected stored output, got %+v", j.Output)
	}
	if !j.StartedAt.After(j.CreatedAt) || !j.CompletedAt.After(j.StartedAt) {
		t.Errorf("expected ordered timestamps, got %v %v %v", j.CreatedAt, j.StartedAt, j.CompletedAt)
	}

	if err := store.Complete(ctx, "job1", out); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a second completion, got %v", err)
	}
}

func TestMemoryStore_FailedOutcome(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Create(ctx, newJob("job1"))
	_ = store.MarkInProgress(ctx, "job1")

	if err := store.Complete(ctx, "job1", model.Failed(model.FailureDetection, "no pose landmarks detected")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	j, _ := store.Get(ctx, "job1")
	if j.Status != model.StatusFailed {
		t.Errorf("expected FAILED, got %s", j.Status)
	}
}

func TestMemoryStore_UnknownAndDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.MarkInProgress(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Complete(ctx, "missing", model.Outcome{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Remove(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_ = store.Create(ctx, newJob("job1"))
	if err := store.Create(ctx, newJob("job1")); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestMemoryStore_Eviction(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(2))

	_ = store.Create(ctx, newJob("job1"))
	_ = store.Create(ctx, newJob("job2"))

	// Nothing finished yet, so nothing may be evicted.
	if err := store.Create(ctx, newJob("job3")); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}

	_ = store.MarkInProgress(ctx, "job2")
	_ = store.Complete(ctx, "job2", model.Failed(model.FailureUnhandled, "boom"))

	if err := store.Create(ctx, newJob("job3")); err != nil {
		t.Fatalf("expected the finished job to be evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "job2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected job2 to be evicted, got %v", err)
	}
	if _, err := store.Get(ctx, "job1"); err != nil {
		t.Errorf("expected pending job1 to survive, got %v", err)
	}

	counts := store.Count(ctx)
	if counts[model.StatusInQueue] != 2 || len(counts) != 1 {
		t.Errorf("expected two queued jobs, got %v", counts)
	}
}

func TestMemoryStore_EvictsOldestFinished(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(3))

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("job%d", i)
		_ = store.Create(ctx, newJob(id))
		_ = store.MarkInProgress(ctx, id)
		_ = store.Complete(ctx, id, model.Failed(model.FailureUnhandled, "boom"))
	}

	_ = store.Create(ctx, newJob("job4"))
	if _, err := store.Get(ctx, "job1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected the oldest job to go first, got %v", err)
	}
	for _, id := range []string{"job2", "job3", "job4"} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Errorf("expected %s to be retained, got %v", id, err)
		}
	}
}

func TestMemoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(1))

	_ = store.Create(ctx, newJob("job1"))
	if err := store.Remove(ctx, "job1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Create(ctx, newJob("job2")); err != nil {
		t.Errorf("expected room after removal, got %v", err)
	}
}

func TestMemoryStore_Wait(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.Create(ctx, newJob("job1"))

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = store.MarkInProgress(ctx, "job1")
		_ = store.Complete(ctx, "job1", model.Succeeded(model.Result{Garment: model.Pants}, ""))
	}()

	j, err := store.Wait(ctx, "job1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != model.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", j.Status)
	}

	// A finished job returns immediately.
	if _, err := store.Wait(ctx, "job1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	_ = store.Create(ctx, newJob("job2"))
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := store.Wait(tctx, "job2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if _, err := store.Wait(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithCapacity(1000))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := fmt.Sprintf("job%d_%d", g, j)
				if err := store.Create(ctx, newJob(id)); err != nil {
					t.Errorf("create %s: %v", id, err)
					return
				}
				_ = store.MarkInProgress(ctx, id)
				_ = store.Complete(ctx, id, model.Failed(model.FailureUnhandled, "boom"))
				_, _ = store.Get(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	if n := store.Count(ctx)[model.StatusFailed]; n != 500 {
		t.Errorf("expected 500 failed jobs, got %d", n)
	}
}
