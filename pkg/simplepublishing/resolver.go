package simplepublishing

import (
	"context"

	"github.com/google/uuid"
)

// RepositoryResolver implements ContentResolver directly over a Repository,
// with the standard locale and state fallback order: the requested locale
// falls back to DefaultLocale, and drafts are considered only when asked
// for. Deployments with a dedicated content cache plug their own resolver in
// instead.
type RepositoryResolver struct {
	repository Repository
}

// NewRepositoryResolver creates a resolver backed by the given repository
func NewRepositoryResolver(repo Repository) *RepositoryResolver {
	return &RepositoryResolver{repository: repo}
}

// ResolveMany resolves the given content_ids in one repository query per
// fallback locale. Ids that resolve to nothing are absent from the result.
func (r *RepositoryResolver) ResolveMany(ctx context.Context, contentIDs []uuid.UUID, locale string, withDrafts bool) (map[uuid.UUID]*ContentItem, error) {
	states := []State{StatePublished, StateUnpublished}
	if withDrafts {
		states = append([]State{StateDraft}, states...)
	}

	resolved := make(map[uuid.UUID]*ContentItem, len(contentIDs))
	for _, fallback := range localeFallbackOrder(locale) {
		remaining := make([]uuid.UUID, 0, len(contentIDs))
		for _, id := range contentIDs {
			if _, ok := resolved[id]; !ok {
				remaining = append(remaining, id)
			}
		}
		if len(remaining) == 0 {
			break
		}

		items, err := r.repository.GetLatestContentItems(ctx, remaining, fallback, states)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			resolved[item.ContentID] = item
		}
	}

	return resolved, nil
}

func localeFallbackOrder(locale string) []string {
	if locale == "" || locale == DefaultLocale {
		return []string{DefaultLocale}
	}
	return []string{locale, DefaultLocale}
}
