package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/attilastrba/notion2hugo/internal/config"
	"github.com/attilastrba/notion2hugo/internal/metrics"
)

var (
	ErrQueueFull = errors.New("export queue is full")
	ErrStopped   = errors.New("orchestrator stopped")
)

// Orchestrator runs queued export jobs on a fixed worker pool.
type Orchestrator struct {
	jobs      *JobStore
	queue     chan *Job
	newRunner RunnerFactory
	log       *slog.Logger
	workers   int

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewOrchestrator(cfg config.Config, newRunner RunnerFactory, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:      NewJobStore(cfg.JobTTL),
		queue:     make(chan *Job, cfg.MaxQueueSize),
		newRunner: newRunner,
		log:       log,
		workers:   cfg.WorkerCount,
	}
}

// Start launches the workers and the job store sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	for i := 0; i < o.workers; i++ {
		i := i
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			o.work(ctx, NewWorker(o.newRunner, o.log.With("worker", i)))
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sweep(ctx)
	}()
}

func (o *Orchestrator) work(ctx context.Context, w *Worker) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-o.queue:
			if !ok {
				return
			}
			metrics.ExportQueueLength.Set(float64(len(o.queue)))
			w.Process(ctx, job)
		}
	}
}

// sweep drops finished jobs older than the TTL. It runs a few times per
// TTL window, at most every five minutes.
func (o *Orchestrator) sweep(ctx context.Context) {
	every := min(o.jobs.ttl/4, 5*time.Minute)
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.jobs.Cleanup()
		}
	}
}

// Stop cancels running jobs and waits for the workers. Jobs still queued
// are marked failed. Calling Stop more than once is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	close(o.queue)
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()

	for job := range o.queue {
		job.SetStatus(StatusFailed, "shutdown")
	}
	metrics.ExportQueueLength.Set(0)
}

// Submit registers job and queues it without blocking.
func (o *Orchestrator) Submit(job *Job) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return ErrStopped
	}

	o.jobs.Put(job)
	select {
	case o.queue <- job:
		metrics.ExportQueueLength.Set(float64(len(o.queue)))
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("%w (%d)", ErrQueueFull, cap(o.queue))
	}
}

func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth reports how many jobs wait for a worker.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
