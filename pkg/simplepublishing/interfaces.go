package simplepublishing

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for content item and link persistence.
//
// All mutating pipeline operations run inside InTx; implementations must
// guarantee that a function returning an error leaves no partial state
// behind.
type Repository interface {
	// InTx runs fn inside a unit of work. The Repository passed to fn is
	// scoped to that transaction; a non-nil error rolls everything back and
	// is returned unchanged.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// Content item operations
	CreateContentItem(ctx context.Context, item *ContentItem) error
	GetContentItem(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	GetLatestContentItem(ctx context.Context, contentID uuid.UUID, locale string) (*ContentItem, error)
	GetLatestContentItems(ctx context.Context, contentIDs []uuid.UUID, locale string, states []State) ([]*ContentItem, error)
	ContentItemsForContentID(ctx context.Context, contentID uuid.UUID) ([]*ContentItem, error)
	// UpdateContentItem rewrites a row, failing with ConflictError unless the
	// row's current lock_version equals expectedLockVersion. On success the
	// stored lock_version is expectedLockVersion+1.
	UpdateContentItem(ctx context.Context, item *ContentItem, expectedLockVersion int) error
	DeleteContentItem(ctx context.Context, id uuid.UUID) error
	DeleteAllContentItems(ctx context.Context, contentID uuid.UUID) error

	// Link set operations
	// EnsureLinkSet lazily creates the link set for contentID with
	// lock_version 1, returning the existing one if present. Callers must
	// invoke it inside the same transaction as the accompanying content
	// write so concurrent first-writes cannot create two link sets.
	EnsureLinkSet(ctx context.Context, contentID uuid.UUID) (*LinkSet, error)
	GetLinkSet(ctx context.Context, contentID uuid.UUID) (*LinkSet, error)
	DeleteLinkSet(ctx context.Context, contentID uuid.UUID) error
	ReplaceLinks(ctx context.Context, linkSetID uuid.UUID, links []Link, expectedLockVersion int) error
	// LinksToTarget returns reverse edges pointing at target, restricted to
	// linkTypes, ordered by (link_type asc, position asc).
	LinksToTarget(ctx context.Context, target uuid.UUID, linkTypes []string) ([]DependentLink, error)

	// NextEventID allocates the monotonic payload version carried on
	// distribution jobs for consumer-side ordering.
	NextEventID(ctx context.Context) (int64, error)
}

// PathReserver is the path reservation service: global ownership of a
// base_path by a publishing app, claimed before any store write.
//
// Reserve returns nil when the path is free or already owned by
// publishingApp, a *ConflictError when it is owned by a different app, and a
// *ArbitrationError when the reservation service itself cannot be reached.
type PathReserver interface {
	Reserve(ctx context.Context, basePath, publishingApp string) error
}

// ContentStore is a downstream serving-tier store adapter (draft or live).
// Put and Delete return the upstream status code; a non-nil error means the
// request never produced a status (transport failure).
type ContentStore interface {
	Put(ctx context.Context, basePath string, projection map[string]interface{}) (int, error)
	Delete(ctx context.Context, basePath string) (int, error)
}

// SchemaValidator validates a payload against the schema registered for
// schemaName. An empty violation list means the payload is valid; a non-nil
// error means validation itself could not run.
type SchemaValidator interface {
	Validate(ctx context.Context, schemaName string, payload map[string]interface{}) ([]Violation, error)
}

// ContentResolver batch-resolves content_ids to their current items, used by
// link expansion. Absent ids are simply missing from the result map.
type ContentResolver interface {
	ResolveMany(ctx context.Context, contentIDs []uuid.UUID, locale string, withDrafts bool) (map[uuid.UUID]*ContentItem, error)
}

// JobQueue enqueues distribution work. Fire-and-forget with at-least-once
// delivery; retry and backoff policy are the provider's.
type JobQueue interface {
	Enqueue(ctx context.Context, queue string, job SyncJob) error
}

// Reporter is the error-tracking channel for worker failures that are
// terminal but not fatal (client-class store responses).
type Reporter interface {
	Report(ctx context.Context, err error)
}
