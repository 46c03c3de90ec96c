// Package simplepublishing provides a content publication and distribution
// engine with pluggable repository, content-store and queue backends.
//
// It exposes a Service interface that orchestrates versioned content writes
// (full-replace imports, optimistically locked draft updates), path
// reservation ahead of any store write, and post-commit enqueueing of
// distribution jobs. A separate Worker consumes those jobs and pushes
// store-facing projections to downstream draft/live content stores,
// classifying delivery failures as retryable, fatal or ignorable. A read-only
// link graph expansion answers "what depends on this content" queries.
//
// Implementations of repositories (memory, Postgres), the content-store and
// path-reservation HTTP clients, the schema validator, and an in-memory job
// queue are provided under subpackages.
package simplepublishing
