package simplepublishing

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// recognizedAttributes is the fixed set of payload keys an import may carry.
// Anything else fails the whole import with a SchemaError listing the
// offending fields.
var recognizedAttributes = map[string]struct{}{
	"content_id":        {},
	"locale":            {},
	"base_path":         {},
	"schema_name":       {},
	"document_type":     {},
	"title":             {},
	"description":       {},
	"details":           {},
	"routes":            {},
	"redirects":         {},
	"state":             {},
	"update_type":       {},
	"publishing_app":    {},
	"rendering_app":     {},
	"access_limited":    {},
	"public_updated_at": {},
}

// itemPayload is the typed shape of a recognized import payload.
type itemPayload struct {
	Locale          string                 `json:"locale"`
	BasePath        string                 `json:"base_path"`
	SchemaName      string                 `json:"schema_name"`
	DocumentType    string                 `json:"document_type"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Details         map[string]interface{} `json:"details"`
	Routes          []Route                `json:"routes"`
	Redirects       []Redirect             `json:"redirects"`
	State           State                  `json:"state"`
	UpdateType      UpdateType             `json:"update_type"`
	PublishingApp   string                 `json:"publishing_app"`
	RenderingApp    string                 `json:"rendering_app"`
	AccessLimited   map[string]interface{} `json:"access_limited"`
	PublicUpdatedAt *time.Time             `json:"public_updated_at"`
}

// Import replaces the full version history of a content_id: it deletes all
// existing content items and the link set, then recreates one row per
// submitted item with user_facing_version and lock_version assigned from
// position, all in a single unit of work. Only after the transaction commits
// is a single low-priority distribution job enqueued for the item flagged
// "Publish" (if any). Any failure aborts the whole import with no partial
// application.
func (s *service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	contentID, err := uuid.Parse(req.ContentID)
	if err != nil {
		return nil, &ValidationError{Field: "content_id", Message: "content id not valid"}
	}

	items := append(s.synthesizeRedirects(req.ContentItems), req.ContentItems...)

	var (
		publish        *ContentItem
		publishUpdate  UpdateType
		payloadVersion int64
	)

	err = s.repository.InTx(ctx, func(tx Repository) error {
		if err := tx.DeleteAllContentItems(ctx, contentID); err != nil {
			return fmt.Errorf("delete existing content items: %w", err)
		}
		if err := tx.DeleteLinkSet(ctx, contentID); err != nil {
			return fmt.Errorf("delete existing link set: %w", err)
		}

		for i, item := range items {
			ci, err := s.buildImportItem(ctx, contentID, item, i+1)
			if err != nil {
				return err
			}
			if _, err := tx.EnsureLinkSet(ctx, contentID); err != nil {
				return fmt.Errorf("ensure link set: %w", err)
			}
			if err := tx.CreateContentItem(ctx, ci); err != nil {
				return fmt.Errorf("create content item version %d: %w", i+1, err)
			}
			if item.Action == ActionPublish {
				publish = ci
				publishUpdate = ci.UpdateType
			}
		}

		payloadVersion, err = tx.NextEventID(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Enqueue strictly after commit: a worker must never observe
	// pre-commit state.
	if publish != nil && s.queue != nil {
		job := SyncJob{
			Store:          StoreLive,
			ContentItemID:  publish.ID,
			ContentID:      contentID,
			Locale:         publish.Locale,
			UpdateType:     publishUpdate,
			PayloadVersion: payloadVersion,
		}
		if err := s.queue.Enqueue(ctx, QueueDownstreamLow, job); err != nil {
			return nil, fmt.Errorf("enqueue distribution job: %w", err)
		}
		s.logger.Debug("scheduled downstream distribution",
			"content_id", contentID, "locale", publish.Locale, "payload_version", payloadVersion)
	}

	return &ImportResult{ContentID: contentID}, nil
}

// buildImportItem filters, validates and materializes one submitted item.
// Unrecognized fields are rejected before schema validation runs, so the
// validator only ever sees recognized keys.
func (s *service) buildImportItem(ctx context.Context, contentID uuid.UUID, item ImportItem, position int) (*ContentItem, error) {
	payload, unknown := filterRecognized(item.Payload)
	if len(unknown) > 0 {
		return nil, &SchemaError{Message: "unrecognized fields in payload", Fields: unknown}
	}

	// content_id comes from the request envelope, never the payload.
	delete(payload, "content_id")

	decoded, err := decodeItemPayload(payload)
	if err != nil {
		return nil, &SchemaError{Message: fmt.Sprintf("payload did not conform to the schema: %v", err)}
	}

	if s.validator != nil {
		violations, err := s.validator.Validate(ctx, decoded.SchemaName, payload)
		if err != nil {
			return nil, fmt.Errorf("schema validation for %q: %w", decoded.SchemaName, err)
		}
		if len(violations) > 0 {
			return nil, &SchemaError{
				Message:    "the payload did not conform to the schema",
				Violations: violations,
			}
		}
	}

	state := decoded.State
	if state == "" {
		state = StateSuperseded
	}
	locale := decoded.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	now := time.Now().UTC()
	return &ContentItem{
		ID:                uuid.New(),
		ContentID:         contentID,
		Locale:            locale,
		BasePath:          decoded.BasePath,
		SchemaName:        decoded.SchemaName,
		DocumentType:      decoded.DocumentType,
		Title:             decoded.Title,
		Description:       decoded.Description,
		Details:           decoded.Details,
		Routes:            decoded.Routes,
		Redirects:         decoded.Redirects,
		State:             state,
		UpdateType:        decoded.UpdateType,
		PublishingApp:     decoded.PublishingApp,
		RenderingApp:      decoded.RenderingApp,
		AccessLimited:     decoded.AccessLimited,
		PublicUpdatedAt:   decoded.PublicUpdatedAt,
		UserFacingVersion: position,
		LockVersion:       position,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// synthesizeRedirects injects a redirect content item for every base_path the
// history moved away from, so old paths keep resolving after a rename. The
// synthesized items precede the explicit ones in version order.
func (s *service) synthesizeRedirects(items []ImportItem) []ImportItem {
	type pathRoutes struct {
		basePath string
		routes   interface{}
	}

	var paths []pathRoutes
	seen := make(map[string]struct{})
	publishingApp := ""
	for _, item := range items {
		bp, _ := item.Payload["base_path"].(string)
		if app, ok := item.Payload["publishing_app"].(string); ok && app != "" {
			publishingApp = app
		}
		if bp == "" {
			continue
		}
		// Dedupe on the (base_path, routes) pair: a routes change alone is a
		// distinct entry but must not synthesize a self-redirect.
		key := pathRoutesKey(bp, item.Payload["routes"])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		paths = append(paths, pathRoutes{basePath: bp, routes: item.Payload["routes"]})
	}

	if len(paths) <= 1 {
		return nil
	}

	redirects := make([]ImportItem, 0, len(paths)-1)
	for i := 0; i+1 < len(paths); i++ {
		old, next := paths[i], paths[i+1]
		if old.basePath == next.basePath {
			continue
		}
		payload := map[string]interface{}{
			"base_path":      old.basePath,
			"schema_name":    "redirect",
			"document_type":  "redirect",
			"publishing_app": publishingApp,
			"update_type":    string(UpdateTypeMajor),
			"redirects": []interface{}{
				map[string]interface{}{
					"path":        old.basePath,
					"type":        "exact",
					"destination": next.basePath,
				},
			},
		}
		// The redirect keeps serving the old path's routes.
		if old.routes != nil {
			payload["routes"] = old.routes
		}
		redirects = append(redirects, ImportItem{Payload: payload})
	}
	return redirects
}

func pathRoutesKey(basePath string, routes interface{}) string {
	raw, _ := json.Marshal(routes)
	return basePath + "\x00" + string(raw)
}

func filterRecognized(payload map[string]interface{}) (map[string]interface{}, []string) {
	filtered := make(map[string]interface{}, len(payload))
	var unknown []string
	for k, v := range payload {
		if _, ok := recognizedAttributes[k]; ok {
			filtered[k] = v
		} else {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return filtered, unknown
}

func decodeItemPayload(payload map[string]interface{}) (*itemPayload, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var decoded itemPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}
