package simplepublishing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PutDraftContent writes a single content representation to the draft store
// after claiming ownership of its base_path. The reservation must precede the
// store write; a path owned by a different app aborts with ConflictError and
// a reservation transport failure aborts with ArbitrationError, so callers
// can tell "couldn't claim the path" from "claimed it but failed to write".
func (s *service) PutDraftContent(ctx context.Context, req PutDraftContentRequest) error {
	if s.reserver == nil {
		return fmt.Errorf("path reserver is required for draft writes")
	}

	publishingApp, _ := req.Payload["publishing_app"].(string)
	if err := s.reserver.Reserve(ctx, req.BasePath, publishingApp); err != nil {
		return err
	}

	store, err := s.store(StoreDraft)
	if err != nil {
		return err
	}

	status, err := store.Put(ctx, req.BasePath, req.Payload)
	if err != nil {
		return fmt.Errorf("draft store put %s: %w", req.BasePath, err)
	}

	if status >= 400 {
		if status == 502 && s.suppressDraft502 {
			s.logger.Warn("suppressed draft store 502", "base_path", req.BasePath)
			return nil
		}
		return &DownstreamError{Store: StoreDraft, Op: "put", Path: req.BasePath, Status: status}
	}

	return nil
}

// UpdateDraftContent creates the next draft version of a (content_id,
// locale). The caller submits the lock_version it observed; if another
// writer got there first the update fails with ConflictError and nothing is
// written. On success the new row carries user_facing_version+1 and
// lock_version PreviousVersion+1, the prior row is superseded, and a draft
// sync job is enqueued once the transaction has committed.
func (s *service) UpdateDraftContent(ctx context.Context, req UpdateDraftContentRequest) (*ContentItem, error) {
	locale := req.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	payload, unknown := filterRecognized(req.Payload)
	if len(unknown) > 0 {
		return nil, &SchemaError{Message: "unrecognized fields in payload", Fields: unknown}
	}
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

	var (
		created        *ContentItem
		payloadVersion int64
	)

	err = s.repository.InTx(ctx, func(tx Repository) error {
		latest, err := tx.GetLatestContentItem(ctx, req.ContentID, locale)
		if err != nil {
			return err
		}
		if latest.LockVersion != req.PreviousVersion {
			return &ConflictError{
				Resource: "content_item",
				Expected: req.PreviousVersion,
				Actual:   latest.LockVersion,
			}
		}

		// Supersede the prior row under its lock_version so a concurrent
		// writer starting from the same observed value loses at commit time.
		if latest.State == StateDraft {
			superseded := *latest
			superseded.State = StateSuperseded
			superseded.UpdatedAt = time.Now().UTC()
			if err := tx.UpdateContentItem(ctx, &superseded, req.PreviousVersion); err != nil {
				return err
			}
		}

		if _, err := tx.EnsureLinkSet(ctx, req.ContentID); err != nil {
			return fmt.Errorf("ensure link set: %w", err)
		}

		now := time.Now().UTC()
		next := &ContentItem{
			ID:                uuid.New(),
			ContentID:         req.ContentID,
			Locale:            locale,
			BasePath:          decoded.BasePath,
			SchemaName:        decoded.SchemaName,
			DocumentType:      decoded.DocumentType,
			Title:             decoded.Title,
			Description:       decoded.Description,
			Details:           decoded.Details,
			Routes:            decoded.Routes,
			Redirects:         decoded.Redirects,
			State:             StateDraft,
			UpdateType:        decoded.UpdateType,
			PublishingApp:     decoded.PublishingApp,
			RenderingApp:      decoded.RenderingApp,
			AccessLimited:     decoded.AccessLimited,
			PublicUpdatedAt:   decoded.PublicUpdatedAt,
			UserFacingVersion: latest.UserFacingVersion + 1,
			LockVersion:       req.PreviousVersion + 1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if next.BasePath == "" {
			next.BasePath = latest.BasePath
		}
		if err := tx.CreateContentItem(ctx, next); err != nil {
			return err
		}
		created = next

		payloadVersion, err = tx.NextEventID(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.queue != nil {
		job := SyncJob{
			Store:          StoreDraft,
			ContentItemID:  created.ID,
			ContentID:      req.ContentID,
			Locale:         locale,
			UpdateType:     created.UpdateType,
			PayloadVersion: payloadVersion,
		}
		if err := s.queue.Enqueue(ctx, QueueDownstream, job); err != nil {
			return nil, fmt.Errorf("enqueue draft sync job: %w", err)
		}
	}

	return created, nil
}

// DeleteDraftContent discards the latest draft of a (content_id, locale) and
// schedules its removal from the draft store.
func (s *service) DeleteDraftContent(ctx context.Context, req DeleteDraftContentRequest) error {
	locale := req.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	var basePath string
	err := s.repository.InTx(ctx, func(tx Repository) error {
		latest, err := tx.GetLatestContentItem(ctx, req.ContentID, locale)
		if err != nil {
			return err
		}
		if latest.State != StateDraft {
			return fmt.Errorf("latest version of %s (%s) is %s, not a draft",
				req.ContentID, locale, latest.State)
		}
		basePath = latest.BasePath
		return tx.DeleteContentItem(ctx, latest.ID)
	})
	if err != nil {
		return err
	}

	if s.queue != nil {
		job := SyncJob{
			Store:    StoreDraft,
			BasePath: basePath,
			Delete:   true,
		}
		if err := s.queue.Enqueue(ctx, QueueDownstream, job); err != nil {
			return fmt.Errorf("enqueue draft deletion job: %w", err)
		}
	}

	return nil
}
