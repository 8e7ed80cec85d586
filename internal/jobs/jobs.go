// Package jobs tracks the status of background runs as explicit values
// keyed by job id, instead of process-wide progress flags.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one job.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job is a point-in-time snapshot of one background run.
type Job struct {
	ID           string
	Kind         string
	Status       Status
	StartedAt    time.Time
	FinishedAt   time.Time
	Observations int
	Error        string
}

// Tracker owns job status for the process. Safe for concurrent use.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[string]Job), now: time.Now}
}

// Begin registers a new running job and returns its snapshot.
func (t *Tracker) Begin(kind string) Job {
	job := Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: t.now().UTC(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = job
	t.mu.Unlock()
	return job
}

// Complete marks a job as succeeded with the number of observations it
// handled.
func (t *Tracker) Complete(id string, observations int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = StatusSucceeded
	job.FinishedAt = t.now().UTC()
	job.Observations = observations
	t.jobs[id] = job
}

// Fail marks a job as failed.
func (t *Tracker) Fail(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs[id]
	if !ok {
		return
	}
	job.Status = StatusFailed
	job.FinishedAt = t.now().UTC()
	if err != nil {
		job.Error = err.Error()
	}
	t.jobs[id] = job
}

// Get looks up one job by id.
func (t *Tracker) Get(id string) (Job, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	job, ok := t.jobs[id]
	return job, ok
}

// Snapshot lists all tracked jobs, most recent first.
func (t *Tracker) Snapshot() []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
