// Command worker runs the downstream sync worker: it consumes distribution
// jobs and pushes store-facing projections to the draft and live content
// stores.
//
// The queue consumed here is the in-process implementation, so this binary
// only sees jobs enqueued from code running in the same process. It is the
// wiring skeleton for a broker-backed JobQueue; until one is bound,
// single-process deployments embed the library instead and share one queue
// between the service and a Runner (see pkg/simplepublishing/queue/memory).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/contentstore"
	queuememory "github.com/tendant/simple-publishing/pkg/simplepublishing/queue/memory"
	repopg "github.com/tendant/simple-publishing/pkg/simplepublishing/repo/postgres"
)

type Config struct {
	DB     DbConfig
	Stores StoreConfig
}

type DbConfig struct {
	Port     uint16 `env:"PUBLISHING_PG_PORT" env-default:"5432"`
	Host     string `env:"PUBLISHING_PG_HOST" env-default:"localhost"`
	Name     string `env:"PUBLISHING_PG_NAME" env-default:"publishing_db"`
	User     string `env:"PUBLISHING_PG_USER" env-default:"publishing"`
	Password string `env:"PUBLISHING_PG_PASSWORD" env-default:"pwd"`
}

type StoreConfig struct {
	DraftURL string `env:"DRAFT_CONTENT_STORE_URL" env-default:"http://localhost:3001"`
	LiveURL  string `env:"CONTENT_STORE_URL" env-default:"http://localhost:3000"`
}

func (c DbConfig) toDatabaseUrl() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

func NewDbPool(ctx context.Context, dbConfig DbConfig) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dbConfig.toDatabaseUrl())
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func main() {
	// Load configuration
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	dbPool, err := NewDbPool(ctx, config.DB)
	if err != nil {
		slog.Error("Failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	repo := repopg.NewWithPool(dbPool)

	worker, err := simplepublishing.NewWorker(
		simplepublishing.WithWorkerRepository(repo),
		simplepublishing.WithWorkerStore(simplepublishing.StoreDraft, contentstore.NewClient(config.Stores.DraftURL)),
		simplepublishing.WithWorkerStore(simplepublishing.StoreLive, contentstore.NewClient(config.Stores.LiveURL)),
		simplepublishing.WithWorkerReporter(simplepublishing.NewSlogReporter(slog.Default())),
	)
	if err != nil {
		slog.Error("Failed to build worker", "err", err)
		os.Exit(1)
	}

	queue := queuememory.NewQueue()
	runner := queuememory.NewRunner(queue, worker.Perform,
		queuememory.WithQueues(simplepublishing.QueueDownstream, simplepublishing.QueueDownstreamLow),
	)

	slog.Info("Downstream sync worker started",
		"draft_store", config.Stores.DraftURL, "live_store", config.Stores.LiveURL)

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		slog.Error("Worker stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("Worker shut down")
}
