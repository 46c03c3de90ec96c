package simplepublishing

import (
	"time"

	"github.com/google/uuid"
)

// State is the domain type for content item lifecycle states.
type State string

// Content item state constants (typed).
const (
	StateDraft       State = "draft"
	StatePublished   State = "published"
	StateSuperseded  State = "superseded"
	StateUnpublished State = "unpublished"
)

// UpdateType describes the significance of a change for downstream consumers.
type UpdateType string

// Update type constants (typed).
const (
	UpdateTypeMajor UpdateType = "major"
	UpdateTypeMinor UpdateType = "minor"
)

// StoreName selects a downstream content store.
type StoreName string

// Downstream store selectors.
const (
	StoreDraft StoreName = "draft"
	StoreLive  StoreName = "live"
)

// DescribeStore returns the human-readable store name used in worker errors.
func DescribeStore(store StoreName) string {
	if store == StoreLive {
		return "Live Content Store"
	}
	return "Draft Content Store"
}

// DefaultLocale is assumed when a payload carries no locale.
const DefaultLocale = "en"

// Queue name constants. Distribution jobs triggered by bulk imports go on the
// low-priority queue so they don't starve editor-driven publishes.
const (
	QueueDownstream    = "downstream"
	QueueDownstreamLow = "downstream_low"
)

// Route maps a request path to a rendering type.
type Route struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

// Redirect maps a request path to a destination.
type Redirect struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Destination string `json:"destination"`
}

// ContentItem is one versioned representation of a piece of content for a
// given (content_id, locale). Rows are immutable after creation except for
// explicit lock_version-checked supersession; each substantive change is a
// new row with a higher user_facing_version.
type ContentItem struct {
	ID              uuid.UUID              `json:"id"`
	ContentID       uuid.UUID              `json:"content_id"`
	Locale          string                 `json:"locale"`
	BasePath        string                 `json:"base_path"`
	SchemaName      string                 `json:"schema_name"`
	DocumentType    string                 `json:"document_type"`
	Title           string                 `json:"title,omitempty"`
	Description     string                 `json:"description,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty"`
	Routes          []Route                `json:"routes,omitempty"`
	Redirects       []Redirect             `json:"redirects,omitempty"`
	State           State                  `json:"state"`
	UpdateType      UpdateType             `json:"update_type,omitempty"`
	PublishingApp   string                 `json:"publishing_app,omitempty"`
	RenderingApp    string                 `json:"rendering_app,omitempty"`
	AccessLimited   map[string]interface{} `json:"access_limited,omitempty"`
	PublicUpdatedAt *time.Time             `json:"public_updated_at,omitempty"`

	UserFacingVersion int `json:"user_facing_version"`
	LockVersion       int `json:"lock_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LinkSet owns the outbound links of a content_id. It is keyed by content_id
// only (not locale-scoped) and is created lazily on the first content write
// for that content_id.
type LinkSet struct {
	ID          uuid.UUID `json:"id"`
	ContentID   uuid.UUID `json:"content_id"`
	LockVersion int       `json:"lock_version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Link is one outbound edge of a link set. Position defines deterministic
// ordering within a link_type group; (link_set_id, link_type, position) is
// unique.
type Link struct {
	ID              uuid.UUID `json:"id"`
	LinkSetID       uuid.UUID `json:"link_set_id"`
	LinkType        string    `json:"link_type"`
	TargetContentID uuid.UUID `json:"target_content_id"`
	Position        int       `json:"position"`
}

// DependentLink is a reverse-edge row: a link of type LinkType from the link
// set owned by ContentID pointing at the queried target.
type DependentLink struct {
	LinkType  string
	ContentID uuid.UUID
	Position  int
}

// SyncJob is the unit of downstream distribution work. Jobs are idempotent:
// re-delivering the same committed version is a no-op at the store, so
// at-least-once delivery from the queue is safe.
type SyncJob struct {
	Store          StoreName  `json:"store"`
	ContentItemID  uuid.UUID  `json:"content_item_id,omitempty"`
	ContentID      uuid.UUID  `json:"content_id,omitempty"`
	Locale         string     `json:"locale,omitempty"`
	BasePath       string     `json:"base_path,omitempty"`
	Delete         bool       `json:"delete,omitempty"`
	UpdateType     UpdateType `json:"update_type,omitempty"`
	PayloadVersion int64      `json:"payload_version,omitempty"`
}

// Violation is one field-level schema validation failure.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ExpandedItem is a projected dependent in a link expansion response. Keys
// are the whitelisted fields for the item's document_type plus a "links" map
// holding the depth-1 back-reference to the expansion target.
type ExpandedItem map[string]interface{}
