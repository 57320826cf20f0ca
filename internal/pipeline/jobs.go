package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attilastrba/notion2hugo/internal/export"
)

// JobStatus represents the state of an export job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
)

// JobRequest selects what an export job runs against. Empty fields fall
// back to the server configuration.
type JobRequest struct {
	DatabaseID string          `json:"database_id,omitempty"`
	Filter     json.RawMessage `json:"filter,omitempty"`
	Publish    bool            `json:"publish"`
}

// Job tracks the state of a single export batch.
type Job struct {
	mu sync.Mutex

	ID      string     `json:"job_id"`
	Request JobRequest `json:"request"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	documents []DocumentResult
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	Exported  int      `json:"exported"`
	Failed    int      `json:"failed"`
	Published int      `json:"published"`
	Errors    []string `json:"errors"`
}

// NewJob builds a queued job with a fresh id.
func NewJob(req JobRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// RecordDocument folds one page outcome into the progress counters.
func (j *Job) RecordDocument(res DocumentResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.documents = append(j.documents, res)
	if res.Error != "" {
		j.Progress.Failed++
		j.errors = append(j.errors, res.PageID+": "+res.Error)
		j.Progress.Errors = j.errors
	} else {
		j.Progress.Exported++
	}
	if res.PublishStatus == export.Published {
		j.Progress.Published++
	}
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string           `json:"job_id"`
	Status    JobStatus        `json:"status"`
	Phase     string           `json:"phase"`
	Request   JobRequest       `json:"request"`
	Progress  Progress         `json:"progress"`
	Documents []DocumentResult `json:"documents"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	docs := append([]DocumentResult{}, j.documents...)
	return JobSnapshot{
		ID:      j.ID,
		Status:  j.Status,
		Phase:   j.Phase,
		Request: j.Request,
		Progress: Progress{
			Exported:  j.Progress.Exported,
			Failed:    j.Progress.Failed,
			Published: j.Progress.Published,
			Errors:    errs,
		},
		Documents: docs,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
