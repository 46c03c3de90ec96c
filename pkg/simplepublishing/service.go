package simplepublishing

import (
	"context"
	"fmt"
	"log/slog"
)

// Service defines the main interface for the simple-publishing library
type Service interface {
	// Versioning & publish pipeline
	Import(ctx context.Context, req ImportRequest) (*ImportResult, error)
	PutDraftContent(ctx context.Context, req PutDraftContentRequest) error
	UpdateDraftContent(ctx context.Context, req UpdateDraftContentRequest) (*ContentItem, error)
	DeleteDraftContent(ctx context.Context, req DeleteDraftContentRequest) error

	// Link graph expansion
	ExpandDependents(ctx context.Context, req ExpandRequest) (map[string][]ExpandedItem, error)
}

// service implements the Service interface
type service struct {
	repository Repository
	reserver   PathReserver
	stores     map[StoreName]ContentStore
	validator  SchemaValidator
	queue      JobQueue
	resolver   ContentResolver
	rules      Rules
	logger     *slog.Logger

	// Compatibility shim for a flaky draft store upstream: when set, a 502
	// from the draft store on PutDraftContent is treated as success.
	suppressDraft502 bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithPathReserver sets the path reservation client
func WithPathReserver(reserver PathReserver) Option {
	return func(s *service) {
		s.reserver = reserver
	}
}

// WithContentStore registers a downstream store adapter
func WithContentStore(name StoreName, store ContentStore) Option {
	return func(s *service) {
		if s.stores == nil {
			s.stores = make(map[StoreName]ContentStore)
		}
		s.stores[name] = store
	}
}

// WithSchemaValidator sets the schema validator
func WithSchemaValidator(validator SchemaValidator) Option {
	return func(s *service) {
		s.validator = validator
	}
}

// WithJobQueue sets the distribution job queue
func WithJobQueue(queue JobQueue) Option {
	return func(s *service) {
		s.queue = queue
	}
}

// WithContentResolver sets the resolver used by link expansion
func WithContentResolver(resolver ContentResolver) Option {
	return func(s *service) {
		s.resolver = resolver
	}
}

// WithExpansionRules overrides the default link expansion rules
func WithExpansionRules(rules Rules) Option {
	return func(s *service) {
		s.rules = rules
	}
}

// WithSuppressDraft502 toggles swallowing 502s from the draft store on
// PutDraftContent
func WithSuppressDraft502(suppress bool) Option {
	return func(s *service) {
		s.suppressDraft502 = suppress
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		stores: make(map[StoreName]ContentStore),
		rules:  DefaultRules(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

func (s *service) store(name StoreName) (ContentStore, error) {
	store, ok := s.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotConfigured, name)
	}
	return store, nil
}
