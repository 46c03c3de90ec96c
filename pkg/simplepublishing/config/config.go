// Package config builds simplepublishing services and workers from
// configuration. Defaults favour the in-memory backends; environment
// overrides come in through WithEnv.
package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/contentstore"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/queue/memory"
	repomem "github.com/tendant/simple-publishing/pkg/simplepublishing/repo/memory"
	repopg "github.com/tendant/simple-publishing/pkg/simplepublishing/repo/postgres"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/schemavalidator"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/urlarbiter"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Environment:  "development",
		DatabaseType: "memory",
	}
}

// Config represents configuration for the publishing service and worker
type Config struct {
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Downstream services
	DraftContentStoreURL string
	LiveContentStoreURL  string
	URLArbiterURL        string

	// Pipeline options
	SuppressDraftStore502 bool
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	return nil
}

// BuildRepository creates a Repository based on the configuration
func (c *Config) BuildRepository(ctx context.Context) (simplepublishing.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomem.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// BuildService creates a Service instance from the configuration. The queue
// is supplied by the caller so the service and worker can share one.
func (c *Config) BuildService(ctx context.Context, queue simplepublishing.JobQueue) (simplepublishing.Service, error) {
	repo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	if queue == nil {
		queue = memory.NewQueue()
	}

	options := []simplepublishing.Option{
		simplepublishing.WithRepository(repo),
		simplepublishing.WithJobQueue(queue),
		simplepublishing.WithSchemaValidator(schemavalidator.New()),
		simplepublishing.WithContentResolver(simplepublishing.NewRepositoryResolver(repo)),
		simplepublishing.WithSuppressDraft502(c.SuppressDraftStore502),
	}

	if c.URLArbiterURL != "" {
		options = append(options, simplepublishing.WithPathReserver(urlarbiter.NewClient(c.URLArbiterURL)))
	}
	if c.DraftContentStoreURL != "" {
		options = append(options, simplepublishing.WithContentStore(
			simplepublishing.StoreDraft, contentstore.NewClient(c.DraftContentStoreURL)))
	}
	if c.LiveContentStoreURL != "" {
		options = append(options, simplepublishing.WithContentStore(
			simplepublishing.StoreLive, contentstore.NewClient(c.LiveContentStoreURL)))
	}

	return simplepublishing.New(options...)
}

// BuildWorker creates a sync worker sharing the given repository
func (c *Config) BuildWorker(repo simplepublishing.Repository) (*simplepublishing.Worker, error) {
	options := []simplepublishing.WorkerOption{
		simplepublishing.WithWorkerRepository(repo),
		simplepublishing.WithWorkerReporter(simplepublishing.NewSlogReporter(nil)),
	}

	if c.DraftContentStoreURL != "" {
		options = append(options, simplepublishing.WithWorkerStore(
			simplepublishing.StoreDraft, contentstore.NewClient(c.DraftContentStoreURL)))
	}
	if c.LiveContentStoreURL != "" {
		options = append(options, simplepublishing.WithWorkerStore(
			simplepublishing.StoreLive, contentstore.NewClient(c.LiveContentStoreURL)))
	}

	return simplepublishing.NewWorker(options...)
}

// PingPostgres verifies connectivity to Postgres.
func PingPostgres(ctx context.Context, databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(ctx)
	return conn.Ping(ctx)
}
