// Package memory provides an in-memory simplepublishing.JobQueue and a
// worker runner consuming it with at-least-once semantics. It serves tests
// and single-process deployments; production systems bind a real broker
// behind the same JobQueue interface.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// Queue is an in-memory, named-queue job store.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   map[string][]simplepublishing.SyncJob
	closed bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	q := &Queue{
		jobs: make(map[string][]simplepublishing.SyncJob),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a job to the named queue. Fire-and-forget; never blocks.
func (q *Queue) Enqueue(ctx context.Context, queue string, job simplepublishing.SyncJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return context.Canceled
	}
	q.jobs[queue] = append(q.jobs[queue], job)
	q.cond.Broadcast()
	return nil
}

// Dequeue pops the oldest job from the first non-empty queue in queues,
// blocking until a job arrives, the context is done, or the queue is closed.
func (q *Queue) Dequeue(ctx context.Context, queues ...string) (simplepublishing.SyncJob, bool) {
	// Wake the waiter when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		for _, name := range queues {
			if pending := q.jobs[name]; len(pending) > 0 {
				job := pending[0]
				q.jobs[name] = pending[1:]
				return job, true
			}
		}
		if q.closed || ctx.Err() != nil {
			return simplepublishing.SyncJob{}, false
		}
		q.cond.Wait()
	}
}

// Len reports the number of pending jobs on the named queue.
func (q *Queue) Len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs[queue])
}

// Snapshot returns a copy of the pending jobs on the named queue, oldest
// first.
func (q *Queue) Snapshot(queue string) []simplepublishing.SyncJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]simplepublishing.SyncJob(nil), q.jobs[queue]...)
}

// Close wakes all blocked consumers and rejects further jobs.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
