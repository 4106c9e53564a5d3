package model

import "time"

// JobStatus tracks a job through the queue.
type JobStatus string

// Job statuses.
const (
	StatusInQueue    JobStatus = "IN_QUEUE"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further transitions happen from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobInput is the payload of a measurement job.
type JobInput struct {
	Image       string // base64 image bytes, optionally a data URI
	GarmentType string // raw requested category; resolved by ParseGarmentType
	// IdempotencyKey, when set, makes resubmission return the first job.
	IdempotencyKey string
}

// Job is a unit of work flowing from the API through the queue to a worker.
type Job struct {
	ID          string
	Input       JobInput
	Status      JobStatus
	Output      *Outcome
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}
