package simplepublishing

import (
	"context"
	"log/slog"
)

// NoopReporter is a no-operation implementation of Reporter
// Useful when no error tracker is wired up or for testing
type NoopReporter struct{}

// NewNoopReporter creates a new no-operation reporter
func NewNoopReporter() Reporter {
	return &NoopReporter{}
}

// Report does nothing
func (n *NoopReporter) Report(ctx context.Context, err error) {}

// SlogReporter reports terminal worker failures as structured log warnings
type SlogReporter struct {
	logger *slog.Logger
}

// NewSlogReporter creates a reporter backed by the given logger
func NewSlogReporter(logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogReporter{logger: logger}
}

// Report logs the error at warning level
func (r *SlogReporter) Report(ctx context.Context, err error) {
	r.logger.Warn("downstream delivery reported", "error", err)
}

// NoopQueue is a no-operation implementation of JobQueue
type NoopQueue struct{}

// NewNoopQueue creates a new no-operation job queue
func NewNoopQueue() JobQueue {
	return &NoopQueue{}
}

// Enqueue does nothing and returns nil
func (n *NoopQueue) Enqueue(ctx context.Context, queue string, job SyncJob) error {
	return nil
}
