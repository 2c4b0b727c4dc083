// Package jobs runs review work asynchronously behind a bounded queue.
package jobs

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sevigo/review-relay/internal/core"
)

// Dispatcher implements core.JobDispatcher with a fixed worker pool over a
// bounded queue. A full queue rejects the dispatch instead of blocking the
// webhook response or growing without limit.
type Dispatcher struct {
	job        core.Job
	jobQueue   chan *core.CanonicalEvent
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher starts maxWorkers goroutines draining a queue of queueSize
// events. Non-positive values fall back to 1 worker and a queue of 64.
func NewDispatcher(job core.Job, maxWorkers, queueSize int, logger *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	d := &Dispatcher{
		job:        job,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan *core.CanonicalEvent, queueSize),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *Dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

func (d *Dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting review worker", "id", workerID)

	for event := range d.jobQueue {
		d.processEvent(workerID, event)
	}

	d.logger.Info("shutting down review worker", "id", workerID)
}

func (d *Dispatcher) processEvent(workerID int, event *core.CanonicalEvent) {
	pr := 0
	if event.PullRequest != nil {
		pr = event.PullRequest.Number
	}
	d.logger.Info("worker processing review",
		"worker_id", workerID,
		"platform", event.Platform,
		"repo", event.Repository.FullName,
		"pr", pr,
	)

	if err := d.job.Run(context.Background(), event); err != nil {
		d.logger.Error("review job failed",
			"platform", event.Platform,
			"repo", event.Repository.FullName,
			"pr", pr,
			"error", err,
		)
	}
}

// Dispatch queues an event for a worker. It never blocks: when the queue is
// full the caller gets ErrQueueFull and should surface backpressure.
func (d *Dispatcher) Dispatch(_ context.Context, event *core.CanonicalEvent) error {
	select {
	case d.jobQueue <- event:
		return nil
	default:
		return core.ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight reviews to finish.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and draining queued reviews")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all review jobs have finished")
}
