package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "memory", cfg.DatabaseType)
	assert.Empty(t, cfg.DatabaseURL)
	assert.False(t, cfg.SuppressDraftStore502)
}

func TestLoadValidation(t *testing.T) {
	t.Run("postgres without a URL is rejected", func(t *testing.T) {
		_, err := Load(func(c *Config) error {
			c.DatabaseType = "postgres"
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("unknown database type is rejected", func(t *testing.T) {
		_, err := Load(func(c *Config) error {
			c.DatabaseType = "cassandra"
			return nil
		})
		assert.Error(t, err)
	})

	t.Run("nil options are skipped", func(t *testing.T) {
		cfg, err := Load(nil)
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.DatabaseType)
	})
}

func TestWithEnv(t *testing.T) {
	t.Run("reads unprefixed variables", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("DATABASE_URL", "postgres://localhost/publishing")
		t.Setenv("DRAFT_CONTENT_STORE_URL", "http://draft:3001")
		t.Setenv("CONTENT_STORE_URL", "http://live:3000")
		t.Setenv("URL_ARBITER_URL", "http://arbiter:3002")
		t.Setenv("SUPPRESS_DRAFT_STORE_502_ERROR", "true")

		cfg, err := Load(WithEnv(""))
		require.NoError(t, err)

		assert.Equal(t, "production", cfg.Environment)
		assert.Equal(t, "postgres", cfg.DatabaseType)
		assert.Equal(t, "postgres://localhost/publishing", cfg.DatabaseURL)
		assert.Equal(t, "http://draft:3001", cfg.DraftContentStoreURL)
		assert.Equal(t, "http://live:3000", cfg.LiveContentStoreURL)
		assert.Equal(t, "http://arbiter:3002", cfg.URLArbiterURL)
		assert.True(t, cfg.SuppressDraftStore502)
	})

	t.Run("prefixed variables win over unprefixed", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "development")
		t.Setenv("PUBLISHING_ENVIRONMENT", "production")

		cfg, err := Load(WithEnv("PUBLISHING_"))
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.Environment)
	})

	t.Run("memory keyword selects the in-memory repository", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "memory")

		cfg, err := Load(WithEnv(""))
		require.NoError(t, err)
		assert.Equal(t, "memory", cfg.DatabaseType)
		assert.Empty(t, cfg.DatabaseURL)
	})

	t.Run("malformed suppress flag fails the load", func(t *testing.T) {
		t.Setenv("SUPPRESS_DRAFT_STORE_502_ERROR", "kinda")

		_, err := Load(WithEnv(""))
		assert.Error(t, err)
	})
}

func TestBuildService(t *testing.T) {
	ctx := context.Background()

	t.Run("memory configuration builds a working service", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		svc, err := cfg.BuildService(ctx, nil)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("worker shares the repository", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		repo, err := cfg.BuildRepository(ctx)
		require.NoError(t, err)

		worker, err := cfg.BuildWorker(repo)
		require.NoError(t, err)
		assert.NotNil(t, worker)
	})
}
