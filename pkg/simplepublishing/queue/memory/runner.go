package memory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// Handler processes one dequeued job.
type Handler func(ctx context.Context, job simplepublishing.SyncJob) error

// Runner consumes a Queue and hands jobs to a Handler with at-least-once
// semantics: a retryable failure is re-attempted with doubling backoff up to
// the attempt budget. A *simplepublishing.NotFoundError from the handler is
// terminal and never retried.
type Runner struct {
	queue       *Queue
	handler     Handler
	queues      []string
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// RunnerOption represents a functional option for configuring the runner
type RunnerOption func(*Runner)

// WithQueues sets the queue names consumed, in priority order
func WithQueues(queues ...string) RunnerOption {
	return func(r *Runner) {
		r.queues = queues
	}
}

// WithMaxAttempts sets the per-job attempt budget
func WithMaxAttempts(attempts int) RunnerOption {
	return func(r *Runner) {
		r.maxAttempts = attempts
	}
}

// WithRetryDelay sets the initial retry backoff
func WithRetryDelay(delay time.Duration) RunnerOption {
	return func(r *Runner) {
		r.retryDelay = delay
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the given queue and handler
func NewRunner(queue *Queue, handler Handler, options ...RunnerOption) *Runner {
	r := &Runner{
		queue:       queue,
		handler:     handler,
		queues:      []string{simplepublishing.QueueDownstream, simplepublishing.QueueDownstreamLow},
		maxAttempts: 5,
		retryDelay:  100 * time.Millisecond,
		logger:      slog.Default(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Run consumes jobs until the context is done or the queue is closed.
func (r *Runner) Run(ctx context.Context) error {
	for {
		job, ok := r.queue.Dequeue(ctx, r.queues...)
		if !ok {
			return ctx.Err()
		}
		r.process(ctx, job)
	}
}

func (r *Runner) process(ctx context.Context, job simplepublishing.SyncJob) {
	delay := r.retryDelay
	for attempt := 1; ; attempt++ {
		err := r.handler(ctx, job)
		if err == nil {
			return
		}

		var notFound *simplepublishing.NotFoundError
		if errors.As(err, &notFound) {
			// Data inconsistency; retrying cannot help.
			r.logger.Error("dropping sync job", "error", err,
				"store", job.Store, "content_item_id", job.ContentItemID)
			return
		}

		if attempt >= r.maxAttempts {
			r.logger.Error("sync job failed permanently", "error", err,
				"store", job.Store, "attempts", attempt)
			return
		}

		r.logger.Warn("sync job failed, retrying", "error", err,
			"store", job.Store, "attempt", attempt)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
	}
}
