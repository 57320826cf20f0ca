package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/attilastrba/notion2hugo/internal/config"
	"github.com/attilastrba/notion2hugo/internal/export"
	"github.com/attilastrba/notion2hugo/internal/notion"
	"github.com/google/uuid"
)

func TestNewJob(t *testing.T) {
	job := NewJob(JobRequest{DatabaseID: "db"})
	if _, err := uuid.Parse(job.ID); err != nil {
		t.Errorf("expected uuid job id, got %q: %v", job.ID, err)
	}
	if job.Status != StatusQueued || job.Phase != "queued" {
		t.Errorf("expected queued job, got %q %q", job.Status, job.Phase)
	}
	if other := NewJob(JobRequest{}); other.ID == job.ID {
		t.Error("expected unique job ids")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{
		ID:        "test-1",
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusRunning, "setup"},
		{StatusRunning, "exporting"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("query failed")
	job.AddError("second failure")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "query failed" {
		t.Errorf("expected first error %q, got %q", "query failed", snap.Progress.Errors[0])
	}
}

func TestJob_RecordDocument(t *testing.T) {
	job := &Job{ID: "docs", UpdatedAt: time.Now()}
	job.RecordDocument(DocumentResult{PageID: "a", Name: "a", PublishStatus: export.Published})
	job.RecordDocument(DocumentResult{PageID: "b", Name: "b", PublishStatus: export.Declined})
	job.RecordDocument(DocumentResult{PageID: "c", Error: "export: boom"})

	snap := job.Snapshot()
	if snap.Progress.Exported != 2 || snap.Progress.Failed != 1 || snap.Progress.Published != 1 {
		t.Errorf("unexpected progress %+v", snap.Progress)
	}
	if len(snap.Documents) != 3 {
		t.Errorf("expected 3 documents, got %d", len(snap.Documents))
	}
	if len(snap.Progress.Errors) != 1 || snap.Progress.Errors[0] != "c: export: boom" {
		t.Errorf("unexpected errors %v", snap.Progress.Errors)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil slices.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil || snap.Documents == nil {
		t.Error("expected non-nil slices in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestWorker_Process(t *testing.T) {
	okSource := &fakeSource{
		pages:  []notion.Page{page("p1", "One")},
		blocks: map[string][]notion.Block{"p1": {blk("b", "paragraph", `{"rich_text":[{"plain_text":"x"}]}`)}},
	}
	mixedSource := &fakeSource{
		pages:  []notion.Page{page("p1", "One"), page("p2", "Two")},
		blocks: map[string][]notion.Block{"p1": {blk("b", "paragraph", `{"rich_text":[{"plain_text":"x"}]}`)}},
	}
	tests := []struct {
		name   string
		source *fakeSource
		setup  error
		want   JobStatus
		phase  string
	}{
		{"completed", okSource, nil, StatusCompleted, "done"},
		{"partial", mixedSource, nil, StatusPartial, "done"},
		{"all failed", &fakeSource{pages: []notion.Page{page("p9", "Nine")}}, nil, StatusFailed, "done"},
		{"query failed", &fakeSource{queryErr: errors.New("down")}, nil, StatusFailed, "exporting"},
		{"setup failed", nil, errors.New("no token"), StatusFailed, "setup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func(ctx context.Context, job *Job) (*Runner, func(), error) {
				if tt.setup != nil {
					return nil, nil, tt.setup
				}
				r, _ := newTestRunner(t, tt.source, nil, Options{})
				return r, nil, nil
			}
			job := NewJob(JobRequest{})
			NewWorker(factory, discardLog).Process(context.Background(), job)

			snap := job.Snapshot()
			if snap.Status != tt.want || snap.Phase != tt.phase {
				t.Errorf("expected %q/%q, got %q/%q (errors %v)", tt.want, tt.phase, snap.Status, snap.Phase, snap.Progress.Errors)
			}
		})
	}
}

func TestOrchestrator_RunsSubmittedJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.WorkerCount = 2
	cfg.MaxQueueSize = 4

	src := &fakeSource{
		pages:  []notion.Page{page("p1", "One")},
		blocks: map[string][]notion.Block{"p1": {blk("b", "paragraph", `{"rich_text":[{"plain_text":"x"}]}`)}},
	}
	factory := func(ctx context.Context, job *Job) (*Runner, func(), error) {
		r, _ := newTestRunner(t, src, nil, Options{})
		return r, nil, nil
	}

	o := NewOrchestrator(cfg, factory, discardLog)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob(JobRequest{})
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Snapshot().Status == StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job did not complete, status %q", job.Snapshot().Status)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 1

	// Not started, so nothing drains the queue.
	o := NewOrchestrator(cfg, nil, discardLog)
	if err := o.Submit(NewJob(JobRequest{})); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	second := NewJob(JobRequest{})
	if err := o.Submit(second); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if snap := second.Snapshot(); snap.Status != StatusFailed || snap.Phase != "queue_full" {
		t.Errorf("expected failed/queue_full, got %q/%q", snap.Status, snap.Phase)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	cfg := config.Defaults()
	cfg.MaxQueueSize = 2

	// Not started, so the job stays queued until Stop.
	o := NewOrchestrator(cfg, nil, discardLog)
	job := NewJob(JobRequest{})
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	o.Stop()
	o.Stop()

	if snap := job.Snapshot(); snap.Status != StatusFailed || snap.Phase != "shutdown" {
		t.Errorf("expected failed/shutdown, got %q/%q", snap.Status, snap.Phase)
	}
	if err := o.Submit(NewJob(JobRequest{})); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped after Stop, got %v", err)
	}
}
