package simplepublishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Worker is the downstream sync worker. It loads a committed content item,
// produces the store-facing projection and pushes it to the selected store,
// classifying the adapter's response. The classification here is the single
// point of failure-policy truth:
//
//	2xx           -> success
//	400/409 (4xx) -> terminal: reported to the error tracker, not raised
//	404 on delete -> success (deletion is idempotent)
//	5xx           -> raised, so the queue infrastructure retries
type Worker struct {
	repository Repository
	stores     map[StoreName]ContentStore
	reporter   Reporter
	logger     *slog.Logger
}

// WorkerOption represents a functional option for configuring the worker
type WorkerOption func(*Worker)

// WithWorkerRepository sets the repository the worker loads items from
func WithWorkerRepository(repo Repository) WorkerOption {
	return func(w *Worker) {
		w.repository = repo
	}
}

// WithWorkerStore registers a downstream store adapter
func WithWorkerStore(name StoreName, store ContentStore) WorkerOption {
	return func(w *Worker) {
		if w.stores == nil {
			w.stores = make(map[StoreName]ContentStore)
		}
		w.stores[name] = store
	}
}

// WithWorkerReporter sets the error-tracking channel
func WithWorkerReporter(reporter Reporter) WorkerOption {
	return func(w *Worker) {
		w.reporter = reporter
	}
}

// WithWorkerLogger sets the structured logger
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a new downstream sync worker
func NewWorker(options ...WorkerOption) (*Worker, error) {
	w := &Worker{
		stores: make(map[StoreName]ContentStore),
	}

	for _, option := range options {
		option(w)
	}

	if w.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if w.reporter == nil {
		w.reporter = NewNoopReporter()
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w, nil
}

// Perform executes one sync job. A returned error means the attempt failed
// in a way the queue should retry, with one exception: *NotFoundError marks
// a data inconsistency and must terminate the job for good.
func (w *Worker) Perform(ctx context.Context, job SyncJob) error {
	store, ok := w.stores[job.Store]
	if !ok {
		return fmt.Errorf("%w: %s", ErrStoreNotConfigured, job.Store)
	}

	if job.Delete {
		status, err := store.Delete(ctx, job.BasePath)
		if err != nil {
			return fmt.Errorf("%s delete %s: %w", DescribeStore(job.Store), job.BasePath, err)
		}
		return w.classify(ctx, job, "delete", job.BasePath, status)
	}

	item, err := w.repository.GetContentItem(ctx, job.ContentItemID)
	if err != nil {
		if errors.Is(err, ErrContentItemNotFound) {
			return &NotFoundError{Store: job.Store, ContentItemID: job.ContentItemID}
		}
		return fmt.Errorf("load content item %s: %w", job.ContentItemID, err)
	}

	projection := ProjectForStore(item, job.Store)
	status, err := store.Put(ctx, item.BasePath, projection)
	if err != nil {
		return fmt.Errorf("%s put %s: %w", DescribeStore(job.Store), item.BasePath, err)
	}
	return w.classify(ctx, job, "put", item.BasePath, status)
}

func (w *Worker) classify(ctx context.Context, job SyncJob, op, path string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 404 && op == "delete":
		// The item was already gone; deletion is idempotent.
		return nil
	case status >= 400 && status < 500:
		// Terminal for this job, but someone should hear about it.
		w.reporter.Report(ctx, &DownstreamError{Store: job.Store, Op: op, Path: path, Status: status})
		return nil
	default:
		return &DownstreamError{Store: job.Store, Op: op, Path: path, Status: status}
	}
}
