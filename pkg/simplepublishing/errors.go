package simplepublishing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrContentItemNotFound indicates a content item was not found
	ErrContentItemNotFound = errors.New("content item not found")

	// ErrLinkSetNotFound indicates a link set was not found
	ErrLinkSetNotFound = errors.New("link set not found")

	// ErrStoreNotConfigured indicates no adapter is registered for a store
	ErrStoreNotConfigured = errors.New("content store not configured")
)

// ValidationError indicates a structurally invalid request (e.g. a malformed
// content_id). It surfaces synchronously with code 422 and is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Code returns the HTTP-equivalent status code.
func (e *ValidationError) Code() int { return 422 }

// SchemaError indicates a payload that does not conform to its registered
// schema, either because it carries unrecognized fields or because the schema
// validator reported violations. Code 422, field-level detail, never retried.
type SchemaError struct {
	Message    string
	Fields     []string
	Violations []Violation
}

func (e *SchemaError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
	}
	if len(e.Violations) > 0 {
		parts := make([]string, len(e.Violations))
		for i, v := range e.Violations {
			parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
		}
		return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
	}
	return e.Message
}

// Code returns the HTTP-equivalent status code.
func (e *SchemaError) Code() int { return 422 }

// ConflictError indicates an optimistic-concurrency failure: either a
// lock_version mismatch on a content item or link set, or a base_path owned
// by a different publishing app. Code 409; the caller must re-fetch and
// retry.
type ConflictError struct {
	Resource  string // "content_item", "link_set" or "path"
	Expected  int    // observed lock_version (lock conflicts)
	Actual    int    // current lock_version (lock conflicts)
	Path      string // conflicting base_path (path conflicts)
	OwningApp string // app that owns the path (path conflicts)
}

func (e *ConflictError) Error() string {
	if e.Resource == "path" {
		return fmt.Sprintf("path %s is reserved by %s", e.Path, e.OwningApp)
	}
	return fmt.Sprintf("conflict on %s: lock_version %d does not match current %d",
		e.Resource, e.Expected, e.Actual)
}

// Code returns the HTTP-equivalent status code.
func (e *ConflictError) Code() int { return 409 }

// ArbitrationError wraps a transport-level failure talking to the path
// reservation service. It is distinct from ConflictError (the path is owned
// by someone else) and from content-store errors (the path was claimed but
// the write failed), so callers can tell the three apart.
type ArbitrationError struct {
	Err error
}

func (e *ArbitrationError) Error() string {
	return fmt.Sprintf("path reservation failed: %v", e.Err)
}

func (e *ArbitrationError) Unwrap() error { return e.Err }

// DownstreamError indicates a content store adapter returned a failure
// status. Classification (retryable vs fatal vs ignorable) lives in the
// worker; a DownstreamError escaping the worker means the attempt should be
// retried by the queue infrastructure.
type DownstreamError struct {
	Store  StoreName
	Op     string // "put" or "delete"
	Path   string
	Status int
}

func (e *DownstreamError) Error() string {
	return fmt.Sprintf("%s responded %d to %s %s", DescribeStore(e.Store), e.Status, e.Op, e.Path)
}

// NotFoundError indicates a sync job referenced a content item that no
// longer exists. This is a data inconsistency, not a transient fault; the
// job must never be retried.
type NotFoundError struct {
	Store         StoreName
	ContentItemID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tried to send content item %s to the %s but it does not exist",
		e.ContentItemID, DescribeStore(e.Store))
}
