package pipeline

import (
	"context"
	"fmt"
	"log/slog"
)

// RunnerFactory builds the Runner for one job. The returned release func,
// when non-nil, is called once the job is done.
type RunnerFactory func(ctx context.Context, job *Job) (*Runner, func(), error)

// Worker processes a single export job.
type Worker struct {
	newRunner RunnerFactory
	log       *slog.Logger
}

func NewWorker(newRunner RunnerFactory, log *slog.Logger) *Worker {
	return &Worker{newRunner: newRunner, log: log}
}

// Process runs a full export batch for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	job.SetStatus(StatusRunning, "setup")
	runner, release, err := w.newRunner(ctx, job)
	if err != nil {
		log.Error("runner setup failed", "error", err)
		job.AddError(fmt.Sprintf("setup: %s", err))
		job.SetStatus(StatusFailed, "setup")
		return
	}
	if release != nil {
		defer release()
	}

	job.SetStatus(StatusRunning, "exporting")
	sum, err := runner.Run(ctx, job.RecordDocument)
	if err != nil {
		log.Error("export failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "exporting")
		return
	}

	log.Info("job finished", "exported", sum.Exported, "failed", sum.Failed, "published", sum.Published)
	switch {
	case sum.Failed > 0 && sum.Exported > 0:
		job.SetStatus(StatusPartial, "done")
	case sum.Failed > 0:
		job.SetStatus(StatusFailed, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
}
