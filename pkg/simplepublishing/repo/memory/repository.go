package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
)

// Repository implements simplepublishing.Repository using in-memory storage.
//
// Transactions are staged clones: InTx copies the current state, applies the
// function to the copy and swaps it in on success, which gives imports their
// all-or-nothing semantics without a journal. The write lock is held for the
// whole transaction, so units of work are serialized; that is the memory
// implementation's concurrency model, not the contract.
type Repository struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	items       map[uuid.UUID]*simplepublishing.ContentItem
	linkSets    map[uuid.UUID]*simplepublishing.LinkSet // keyed by content_id
	links       map[uuid.UUID][]simplepublishing.Link   // keyed by link_set_id
	nextEventID int64
}

func newState() *state {
	return &state{
		items:    make(map[uuid.UUID]*simplepublishing.ContentItem),
		linkSets: make(map[uuid.UUID]*simplepublishing.LinkSet),
		links:    make(map[uuid.UUID][]simplepublishing.Link),
	}
}

func (s *state) clone() *state {
	next := &state{
		items:       make(map[uuid.UUID]*simplepublishing.ContentItem, len(s.items)),
		linkSets:    make(map[uuid.UUID]*simplepublishing.LinkSet, len(s.linkSets)),
		links:       make(map[uuid.UUID][]simplepublishing.Link, len(s.links)),
		nextEventID: s.nextEventID,
	}
	// Entries are replaced, never mutated, so sharing the values is safe.
	for id, item := range s.items {
		next.items[id] = item
	}
	for id, ls := range s.linkSets {
		next.linkSets[id] = ls
	}
	for id, links := range s.links {
		next.links[id] = append([]simplepublishing.Link(nil), links...)
	}
	return next
}

// New creates a new in-memory repository
func New() simplepublishing.Repository {
	return &Repository{state: newState()}
}

// InTx runs fn against a staged copy of the repository state, committing the
// copy only when fn returns nil.
func (r *Repository) InTx(ctx context.Context, fn func(tx simplepublishing.Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := r.state.clone()
	if err := fn(&txRepository{state: staged}); err != nil {
		return err
	}
	r.state = staged
	return nil
}

// Content item operations

func (r *Repository) CreateContentItem(ctx context.Context, item *simplepublishing.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.createContentItem(item)
}

func (r *Repository) GetContentItem(ctx context.Context, id uuid.UUID) (*simplepublishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.getContentItem(id)
}

func (r *Repository) GetLatestContentItem(ctx context.Context, contentID uuid.UUID, locale string) (*simplepublishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.getLatestContentItem(contentID, locale)
}

func (r *Repository) GetLatestContentItems(ctx context.Context, contentIDs []uuid.UUID, locale string, states []simplepublishing.State) ([]*simplepublishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.getLatestContentItems(contentIDs, locale, states)
}

func (r *Repository) ContentItemsForContentID(ctx context.Context, contentID uuid.UUID) ([]*simplepublishing.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.contentItemsForContentID(contentID)
}

func (r *Repository) UpdateContentItem(ctx context.Context, item *simplepublishing.ContentItem, expectedLockVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.updateContentItem(item, expectedLockVersion)
}

func (r *Repository) DeleteContentItem(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.deleteContentItem(id)
}

func (r *Repository) DeleteAllContentItems(ctx context.Context, contentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.deleteAllContentItems(contentID)
}

// Link set operations

func (r *Repository) EnsureLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ensureLinkSet(contentID)
}

func (r *Repository) GetLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.getLinkSet(contentID)
}

func (r *Repository) DeleteLinkSet(ctx context.Context, contentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.deleteLinkSet(contentID)
}

func (r *Repository) ReplaceLinks(ctx context.Context, linkSetID uuid.UUID, links []simplepublishing.Link, expectedLockVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.replaceLinks(linkSetID, links, expectedLockVersion)
}

func (r *Repository) LinksToTarget(ctx context.Context, target uuid.UUID, linkTypes []string) ([]simplepublishing.DependentLink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.linksToTarget(target, linkTypes)
}

func (r *Repository) NextEventID(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.allocEventID(), nil
}

// txRepository exposes a staged state as a Repository. The enclosing InTx
// holds the write lock, so no further locking happens here.
type txRepository struct {
	state *state
}

func (t *txRepository) InTx(ctx context.Context, fn func(tx simplepublishing.Repository) error) error {
	// Nested units of work join the enclosing transaction.
	return fn(t)
}

func (t *txRepository) CreateContentItem(ctx context.Context, item *simplepublishing.ContentItem) error {
	return t.state.createContentItem(item)
}

func (t *txRepository) GetContentItem(ctx context.Context, id uuid.UUID) (*simplepublishing.ContentItem, error) {
	return t.state.getContentItem(id)
}

func (t *txRepository) GetLatestContentItem(ctx context.Context, contentID uuid.UUID, locale string) (*simplepublishing.ContentItem, error) {
	return t.state.getLatestContentItem(contentID, locale)
}

func (t *txRepository) GetLatestContentItems(ctx context.Context, contentIDs []uuid.UUID, locale string, states []simplepublishing.State) ([]*simplepublishing.ContentItem, error) {
	return t.state.getLatestContentItems(contentIDs, locale, states)
}

func (t *txRepository) ContentItemsForContentID(ctx context.Context, contentID uuid.UUID) ([]*simplepublishing.ContentItem, error) {
	return t.state.contentItemsForContentID(contentID)
}

func (t *txRepository) UpdateContentItem(ctx context.Context, item *simplepublishing.ContentItem, expectedLockVersion int) error {
	return t.state.updateContentItem(item, expectedLockVersion)
}

func (t *txRepository) DeleteContentItem(ctx context.Context, id uuid.UUID) error {
	return t.state.deleteContentItem(id)
}

func (t *txRepository) DeleteAllContentItems(ctx context.Context, contentID uuid.UUID) error {
	return t.state.deleteAllContentItems(contentID)
}

func (t *txRepository) EnsureLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	return t.state.ensureLinkSet(contentID)
}

func (t *txRepository) GetLinkSet(ctx context.Context, contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	return t.state.getLinkSet(contentID)
}

func (t *txRepository) DeleteLinkSet(ctx context.Context, contentID uuid.UUID) error {
	return t.state.deleteLinkSet(contentID)
}

func (t *txRepository) ReplaceLinks(ctx context.Context, linkSetID uuid.UUID, links []simplepublishing.Link, expectedLockVersion int) error {
	return t.state.replaceLinks(linkSetID, links, expectedLockVersion)
}

func (t *txRepository) LinksToTarget(ctx context.Context, target uuid.UUID, linkTypes []string) ([]simplepublishing.DependentLink, error) {
	return t.state.linksToTarget(target, linkTypes)
}

func (t *txRepository) NextEventID(ctx context.Context) (int64, error) {
	return t.state.allocEventID(), nil
}

// state operations

func (s *state) createContentItem(item *simplepublishing.ContentItem) error {
	// Enforce the row uniqueness the persisted layout guarantees: one row per
	// (content_id, locale, user_facing_version), and at most one published
	// row per (content_id, locale).
	for _, existing := range s.items {
		if existing.ContentID != item.ContentID || existing.Locale != item.Locale {
			continue
		}
		if existing.UserFacingVersion == item.UserFacingVersion {
			return &simplepublishing.ConflictError{
				Resource: "content_item",
				Expected: item.LockVersion,
				Actual:   existing.LockVersion,
			}
		}
		if item.State == simplepublishing.StatePublished &&
			existing.State == simplepublishing.StatePublished {
			return &simplepublishing.ConflictError{
				Resource: "content_item",
				Expected: item.LockVersion,
				Actual:   existing.LockVersion,
			}
		}
	}

	itemCopy := *item
	s.items[item.ID] = &itemCopy
	return nil
}

func (s *state) getContentItem(id uuid.UUID) (*simplepublishing.ContentItem, error) {
	item, exists := s.items[id]
	if !exists {
		return nil, simplepublishing.ErrContentItemNotFound
	}
	itemCopy := *item
	return &itemCopy, nil
}

func (s *state) getLatestContentItem(contentID uuid.UUID, locale string) (*simplepublishing.ContentItem, error) {
	var latest *simplepublishing.ContentItem
	for _, item := range s.items {
		if item.ContentID != contentID || item.Locale != locale {
			continue
		}
		if latest == nil || item.UserFacingVersion > latest.UserFacingVersion {
			latest = item
		}
	}
	if latest == nil {
		return nil, simplepublishing.ErrContentItemNotFound
	}
	itemCopy := *latest
	return &itemCopy, nil
}

func (s *state) getLatestContentItems(contentIDs []uuid.UUID, locale string, states []simplepublishing.State) ([]*simplepublishing.ContentItem, error) {
	wanted := make(map[uuid.UUID]struct{}, len(contentIDs))
	for _, id := range contentIDs {
		wanted[id] = struct{}{}
	}
	allowed := make(map[simplepublishing.State]struct{}, len(states))
	for _, st := range states {
		allowed[st] = struct{}{}
	}

	latest := make(map[uuid.UUID]*simplepublishing.ContentItem, len(contentIDs))
	for _, item := range s.items {
		if _, ok := wanted[item.ContentID]; !ok {
			continue
		}
		if item.Locale != locale {
			continue
		}
		if _, ok := allowed[item.State]; !ok {
			continue
		}
		current := latest[item.ContentID]
		if current == nil || item.UserFacingVersion > current.UserFacingVersion {
			latest[item.ContentID] = item
		}
	}

	result := make([]*simplepublishing.ContentItem, 0, len(latest))
	for _, item := range latest {
		itemCopy := *item
		result = append(result, &itemCopy)
	}
	return result, nil
}

func (s *state) contentItemsForContentID(contentID uuid.UUID) ([]*simplepublishing.ContentItem, error) {
	var result []*simplepublishing.ContentItem
	for _, item := range s.items {
		if item.ContentID == contentID {
			itemCopy := *item
			result = append(result, &itemCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Locale != result[j].Locale {
			return result[i].Locale < result[j].Locale
		}
		return result[i].UserFacingVersion < result[j].UserFacingVersion
	})
	return result, nil
}

func (s *state) updateContentItem(item *simplepublishing.ContentItem, expectedLockVersion int) error {
	existing, exists := s.items[item.ID]
	if !exists {
		return simplepublishing.ErrContentItemNotFound
	}
	if existing.LockVersion != expectedLockVersion {
		return &simplepublishing.ConflictError{
			Resource: "content_item",
			Expected: expectedLockVersion,
			Actual:   existing.LockVersion,
		}
	}

	itemCopy := *item
	itemCopy.LockVersion = expectedLockVersion + 1
	itemCopy.UpdatedAt = time.Now().UTC()
	s.items[item.ID] = &itemCopy
	return nil
}

func (s *state) deleteContentItem(id uuid.UUID) error {
	if _, exists := s.items[id]; !exists {
		return simplepublishing.ErrContentItemNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *state) deleteAllContentItems(contentID uuid.UUID) error {
	for id, item := range s.items {
		if item.ContentID == contentID {
			delete(s.items, id)
		}
	}
	return nil
}

func (s *state) ensureLinkSet(contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	if existing, ok := s.linkSets[contentID]; ok {
		lsCopy := *existing
		return &lsCopy, nil
	}

	now := time.Now().UTC()
	ls := &simplepublishing.LinkSet{
		ID:          uuid.New(),
		ContentID:   contentID,
		LockVersion: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.linkSets[contentID] = ls
	lsCopy := *ls
	return &lsCopy, nil
}

func (s *state) getLinkSet(contentID uuid.UUID) (*simplepublishing.LinkSet, error) {
	ls, exists := s.linkSets[contentID]
	if !exists {
		return nil, simplepublishing.ErrLinkSetNotFound
	}
	lsCopy := *ls
	return &lsCopy, nil
}

func (s *state) deleteLinkSet(contentID uuid.UUID) error {
	ls, exists := s.linkSets[contentID]
	if !exists {
		return nil
	}
	delete(s.links, ls.ID)
	delete(s.linkSets, contentID)
	return nil
}

func (s *state) replaceLinks(linkSetID uuid.UUID, links []simplepublishing.Link, expectedLockVersion int) error {
	var owner *simplepublishing.LinkSet
	for _, ls := range s.linkSets {
		if ls.ID == linkSetID {
			owner = ls
			break
		}
	}
	if owner == nil {
		return simplepublishing.ErrLinkSetNotFound
	}
	if owner.LockVersion != expectedLockVersion {
		return &simplepublishing.ConflictError{
			Resource: "link_set",
			Expected: expectedLockVersion,
			Actual:   owner.LockVersion,
		}
	}

	seen := make(map[string]map[int]struct{})
	stored := make([]simplepublishing.Link, 0, len(links))
	for _, link := range links {
		if seen[link.LinkType] == nil {
			seen[link.LinkType] = make(map[int]struct{})
		}
		if _, dup := seen[link.LinkType][link.Position]; dup {
			return &simplepublishing.ConflictError{Resource: "link_set",
				Expected: expectedLockVersion, Actual: expectedLockVersion}
		}
		seen[link.LinkType][link.Position] = struct{}{}

		linkCopy := link
		if linkCopy.ID == uuid.Nil {
			linkCopy.ID = uuid.New()
		}
		linkCopy.LinkSetID = linkSetID
		stored = append(stored, linkCopy)
	}

	ownerCopy := *owner
	ownerCopy.LockVersion = expectedLockVersion + 1
	ownerCopy.UpdatedAt = time.Now().UTC()
	s.linkSets[owner.ContentID] = &ownerCopy
	s.links[linkSetID] = stored
	return nil
}

func (s *state) linksToTarget(target uuid.UUID, linkTypes []string) ([]simplepublishing.DependentLink, error) {
	allowed := make(map[string]struct{}, len(linkTypes))
	for _, t := range linkTypes {
		allowed[t] = struct{}{}
	}

	var result []simplepublishing.DependentLink
	for linkSetID, links := range s.links {
		var owner uuid.UUID
		for _, ls := range s.linkSets {
			if ls.ID == linkSetID {
				owner = ls.ContentID
				break
			}
		}
		for _, link := range links {
			if link.TargetContentID != target {
				continue
			}
			if _, ok := allowed[link.LinkType]; !ok {
				continue
			}
			result = append(result, simplepublishing.DependentLink{
				LinkType:  link.LinkType,
				ContentID: owner,
				Position:  link.Position,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].LinkType != result[j].LinkType {
			return result[i].LinkType < result[j].LinkType
		}
		return result[i].Position < result[j].Position
	})
	return result, nil
}

func (s *state) allocEventID() int64 {
	s.nextEventID++
	return s.nextEventID
}
