package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/migration-warden/internal/core"
)

const queueSize = 100

// dispatcher implements core.JobDispatcher and manages a pool of worker goroutines
// for processing pull requests as migration check jobs.
type dispatcher struct {
	job        core.Job               // Job implementation executed by each worker.
	jobQueue   chan *core.PullRequest // Queue of pull requests waiting for a check.
	maxWorkers int                    // Number of concurrent workers.
	wg         sync.WaitGroup         // Tracks active workers for graceful shutdown.
	logger     *slog.Logger
}

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(job core.Job, maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.PullRequest, queueSize),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes pull requests from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting check worker", "id", workerID)

	for pr := range d.jobQueue {
		d.process(workerID, pr)
	}

	d.logger.Info("shutting down check worker", "id", workerID)
}

func (d *dispatcher) process(workerID int, pr *core.PullRequest) {
	d.logger.Info("worker processing job", "worker_id", workerID, "repo", pr.FullName(), "pr", pr.Number)

	if err := d.job.Run(context.Background(), pr); err != nil {
		d.logger.Error("migration check job failed",
			"repo", pr.FullName(),
			"pr", pr.Number,
			"error", err,
		)
	}
}

// Dispatch queues a pull request for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, pr *core.PullRequest) error {
	d.logger.Info("queuing migration check job", "repo", pr.FullName(), "pr", pr.Number)

	select {
	case d.jobQueue <- pr:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new check job")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for all workers to finish.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for jobs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all check jobs have finished")
}
