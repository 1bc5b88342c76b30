package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker processes jobs from a queue
type Worker struct {
	queue    *Queue
	config   WorkerConfig
	handlers map[string]Handler
	mu       sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
}

// NewWorker creates a new job worker
func NewWorker(queue *Queue, config WorkerConfig) *Worker {
	return &Worker{
		queue:    queue,
		config:   config,
		handlers: make(map[string]Handler),
	}
}

// RegisterHandler registers a job handler for a specific job type
func (w *Worker) RegisterHandler(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[handler.GetType()] = handler
	log.Info().Str("type", handler.GetType()).Msg("registered job handler")
}

// Start starts the worker pool
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("worker is stopped, cannot restart")
	}
	w.mu.Unlock()

	log.Info().
		Str("queue", w.config.Queue).
		Int("concurrency", w.config.Concurrency).
		Msg("starting job workers")

	for i := 0; i < w.config.Concurrency; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i+1)
	}

	return nil
}

// Stop gracefully stops the worker pool
func (w *Worker) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()

	log.Info().Str("queue", w.config.Queue).Msg("stopping job workers")
	w.wg.Wait()
	log.Info().Str("queue", w.config.Queue).Msg("job workers stopped")
}

// Wait waits for all workers to finish
func (w *Worker) Wait() {
	w.wg.Wait()
}

// runWorker runs a single worker goroutine
func (w *Worker) runWorker(ctx context.Context, workerID int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", workerID).Msg("worker stopping, context cancelled")
			return

		case <-ticker.C:
			w.mu.RLock()
			if w.stopped {
				w.mu.RUnlock()
				return
			}
			w.mu.RUnlock()

			if err := w.ProcessNextJob(ctx); err != nil && err != ErrNoJobsAvailable {
				log.Warn().Int("worker", workerID).Err(err).Msg("worker error")
			}
		}
	}
}

// ErrNoJobsAvailable is returned when no jobs are available
var ErrNoJobsAvailable = fmt.Errorf("no jobs available")

// ProcessNextJob dequeues and executes a single job. The handler's typed
// outcome decides whether the job completes, retries or fails terminally.
func (w *Worker) ProcessNextJob(ctx context.Context) error {
	job, err := w.queue.Dequeue(ctx, w.config.Queue)
	if err != nil {
		return fmt.Errorf("failed to dequeue job: %w", err)
	}
	if job == nil {
		return ErrNoJobsAvailable
	}

	log.Info().
		Str("job", job.ID.String()).
		Str("type", job.Type).
		Int("attempt", job.Attempts).
		Msg("processing job")

	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("no handler registered for job type: %s", job.Type)
		if markErr := w.queue.MarkFailed(ctx, job.ID, err, false); markErr != nil {
			log.Warn().Err(markErr).Msg("failed to mark job as failed")
		}
		return nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	startTime := time.Now()
	outcome := handler.Handle(jobCtx, job)
	duration := time.Since(startTime)

	switch outcome.Kind {
	case OutcomeDone:
		log.Info().
			Str("job", job.ID.String()).
			Dur("duration", duration).
			Msg("job completed")
		if err := w.queue.MarkCompleted(ctx, job.ID, outcome.Result); err != nil {
			log.Warn().Err(err).Msg("failed to mark job as completed")
		}

	case OutcomeRetry:
		log.Warn().
			Str("job", job.ID.String()).
			Int("attempt", job.Attempts).
			Int("max_retries", job.MaxRetries).
			Err(outcome.Err).
			Msg("job failed, may retry")
		if err := w.queue.MarkFailed(ctx, job.ID, outcome.Err, true); err != nil {
			log.Warn().Err(err).Msg("failed to mark job as failed")
		}

	case OutcomeAbort:
		log.Error().
			Str("job", job.ID.String()).
			Err(outcome.Err).
			Msg("job failed terminally")
		if err := w.queue.MarkFailed(ctx, job.ID, outcome.Err, false); err != nil {
			log.Warn().Err(err).Msg("failed to mark job as failed")
		}
	}

	return nil
}
