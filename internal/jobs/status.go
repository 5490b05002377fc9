package jobs

import (
	"context"
	"time"
)

type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
	StatusNotFound Status = "not_found"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusFailed || s == StatusNotFound
}

// JobInfo is a point-in-time view of a job. Result is set once finished, and
// on a timed-out job it holds the counts reached before the deadline. Error is
// set when the job failed outside the handler or timed out.
type JobInfo struct {
	JobID  string           `json:"job_id"`
	Status Status           `json:"status"`
	Result *InferenceResult `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Queue schedules inference jobs. Enqueue never waits for the job to run.
type Queue interface {
	Enqueue(ctx context.Context, payload InferencePayload, timeout time.Duration) (string, error)
	Status(ctx context.Context, jobID string) (JobInfo, error)
}

// Backlog is implemented by queues that can report how many jobs wait to run.
type Backlog interface {
	Pending(ctx context.Context) (int64, error)
}
