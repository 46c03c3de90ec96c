package simplepublishing

import "github.com/google/uuid"

// Request/Response DTOs

// ActionPublish marks the item in an ImportRequest whose committed version
// should be distributed to the live store.
const ActionPublish = "Publish"

// ImportItem is one versioned representation in an ImportRequest, in
// user-facing-version order. Payload is the raw attribute map; keys outside
// the recognized attribute set are rejected.
type ImportItem struct {
	Action  string                 `json:"action"`
	Payload map[string]interface{} `json:"payload"`
}

// ImportRequest replaces the full version history of a content_id.
type ImportRequest struct {
	ContentID    string       `json:"content_id"`
	ContentItems []ImportItem `json:"content_items"`
}

// ImportResult reports a committed import.
type ImportResult struct {
	ContentID uuid.UUID `json:"content_id"`
}

// PutDraftContentRequest writes a single draft representation behind a path
// reservation.
type PutDraftContentRequest struct {
	BasePath string                 `json:"base_path"`
	Payload  map[string]interface{} `json:"payload"`
}

// UpdateDraftContentRequest creates the next draft version of a
// (content_id, locale). PreviousVersion must carry the lock_version the
// caller observed; a stale value fails with ConflictError.
type UpdateDraftContentRequest struct {
	ContentID       uuid.UUID              `json:"content_id"`
	Locale          string                 `json:"locale"`
	Payload         map[string]interface{} `json:"payload"`
	PreviousVersion int                    `json:"previous_version"`
}

// DeleteDraftContentRequest discards the latest draft of a
// (content_id, locale) and schedules its removal from the draft store.
type DeleteDraftContentRequest struct {
	ContentID uuid.UUID `json:"content_id"`
	Locale    string    `json:"locale"`
}

// ExpandRequest asks for the dependents of a content_id: every content item
// whose link set points at it through a reverse-expandable link type.
type ExpandRequest struct {
	ContentID  uuid.UUID `json:"content_id"`
	Locale     string    `json:"locale"`
	WithDrafts bool      `json:"with_drafts"`
}
