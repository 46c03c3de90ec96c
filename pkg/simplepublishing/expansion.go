package simplepublishing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ExpandDependents answers "what depends on this content": it finds every
// link row targeting req.ContentID whose link_type is reverse-expandable,
// batch-resolves the linking items, groups them under the reverse name of
// their link_type and projects each through the per-document-type field
// whitelist. When the target itself resolves, every dependent carries a
// depth-1 back-reference to it under the original link_type key, so callers
// can render "child of X" without a second query.
//
// Dependents that fail to resolve (e.g. draft-only when drafts are excluded)
// are dropped silently: a read-side presentation default, not an error.
func (s *service) ExpandDependents(ctx context.Context, req ExpandRequest) (map[string][]ExpandedItem, error) {
	if s.resolver == nil {
		return nil, fmt.Errorf("content resolver is required for link expansion")
	}

	locale := req.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	links, err := s.repository.LinksToTarget(ctx, req.ContentID, s.rules.ReverseTypes())
	if err != nil {
		return nil, fmt.Errorf("query dependent links: %w", err)
	}

	result := make(map[string][]ExpandedItem)
	if len(links) == 0 {
		return result, nil
	}

	// One resolver round-trip covers every dependent plus the target itself.
	ids := make([]uuid.UUID, 0, len(links)+1)
	seen := make(map[uuid.UUID]struct{}, len(links)+1)
	for _, link := range links {
		if _, dup := seen[link.ContentID]; dup {
			continue
		}
		seen[link.ContentID] = struct{}{}
		ids = append(ids, link.ContentID)
	}
	if _, dup := seen[req.ContentID]; !dup {
		ids = append(ids, req.ContentID)
	}

	resolved, err := s.resolver.ResolveMany(ctx, ids, locale, req.WithDrafts)
	if err != nil {
		return nil, fmt.Errorf("resolve dependents: %w", err)
	}

	parent := resolved[req.ContentID]
	var parentProjection ExpandedItem
	if parent != nil {
		parentProjection = s.rules.Project(parent)
		parentProjection["links"] = map[string][]ExpandedItem{}
	}

	// links arrive ordered by (link_type asc, position asc); appending in
	// that order keeps the output deterministic.
	for _, link := range links {
		item := resolved[link.ContentID]
		if item == nil {
			continue
		}

		projected := s.rules.Project(item)
		if parentProjection != nil {
			projected["links"] = map[string][]ExpandedItem{
				link.LinkType: {parentProjection},
			}
		} else {
			projected["links"] = map[string][]ExpandedItem{}
		}

		reverse := s.rules.ReverseNames[link.LinkType]
		result[reverse] = append(result[reverse], projected)
	}

	return result, nil
}
