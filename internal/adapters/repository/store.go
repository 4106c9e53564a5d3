// Package repository keeps measurement jobs for status queries.
package repository

import (
	"context"

	"github.com/okian/fitmeasure/internal/domain/model"
)

// Store provides read/write access to job state.
type Store interface {
	// Create registers a new IN_QUEUE job.
	// Returns ErrDuplicate for a known id and ErrFull when nothing can be evicted.
	Create(ctx context.Context, j model.Job) error

	// Get returns a snapshot of the job. Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.Job, error)

	// MarkInProgress moves an IN_QUEUE job to IN_PROGRESS.
	MarkInProgress(ctx context.Context, id string) error

	// Complete stores the outcome and moves the job to COMPLETED or FAILED.
	Complete(ctx context.Context, id string, o model.Outcome) error

	// Wait blocks until the job reaches a terminal status or ctx ends.
	Wait(ctx context.Context, id string) (model.Job, error)

	// Remove forgets a job, e.g. one that could not be enqueued.
	Remove(ctx context.Context, id string) error

	// Count returns the number of retained jobs by status.
	Count(ctx context.Context) map[model.JobStatus]int
}
