package simplepublishing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-publishing/pkg/simplepublishing"
	queuememory "github.com/tendant/simple-publishing/pkg/simplepublishing/queue/memory"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/repo/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplepublishing.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplepublishing.Option{},
			expectError: true,
		},
		{
			name: "with repository should succeed",
			options: []simplepublishing.Option{
				simplepublishing.WithRepository(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with repository and queue should succeed",
			options: []simplepublishing.Option{
				simplepublishing.WithRepository(memory.New()),
				simplepublishing.WithJobQueue(queuememory.NewQueue()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simplepublishing.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

type importFixture struct {
	svc   simplepublishing.Service
	repo  simplepublishing.Repository
	queue *queuememory.Queue
}

func setupImportFixture(t *testing.T) importFixture {
	repo := memory.New()
	queue := queuememory.NewQueue()

	svc, err := simplepublishing.New(
		simplepublishing.WithRepository(repo),
		simplepublishing.WithJobQueue(queue),
	)
	require.NoError(t, err)

	return importFixture{svc: svc, repo: repo, queue: queue}
}

func importPayload(basePath string, overrides map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{
		"base_path":      basePath,
		"schema_name":    "placeholder",
		"document_type":  "placeholder",
		"title":          "A title",
		"publishing_app": "whitehall",
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("creates one row per item with sequential versions", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		result, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
				{Payload: importPayload("/a", nil)},
				{Action: "Publish", Payload: importPayload("/a", map[string]interface{}{"state": "published"})},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, contentID, result.ContentID.String())

		items, err := f.repo.ContentItemsForContentID(ctx, result.ContentID)
		require.NoError(t, err)
		require.Len(t, items, 3)
		for i, item := range items {
			assert.Equal(t, i+1, item.UserFacingVersion)
			assert.Equal(t, i+1, item.LockVersion)
		}
	})

	t.Run("state defaults to superseded", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		result, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
			},
		})
		require.NoError(t, err)

		items, err := f.repo.ContentItemsForContentID(ctx, result.ContentID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, simplepublishing.StateSuperseded, items[0].State)
	})

	t.Run("enqueues exactly one low-priority job for the Publish item", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := "11111111-1111-1111-1111-111111111111"

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Action: "Publish", Payload: importPayload("/a", map[string]interface{}{
					"state":       "published",
					"update_type": "major",
				})},
			},
		})
		require.NoError(t, err)

		jobs := f.queue.Snapshot(simplepublishing.QueueDownstreamLow)
		require.Len(t, jobs, 1)
		assert.Equal(t, simplepublishing.StoreLive, jobs[0].Store)
		assert.Equal(t, contentID, jobs[0].ContentID.String())
		assert.Equal(t, "en", jobs[0].Locale)
		assert.Equal(t, simplepublishing.UpdateTypeMajor, jobs[0].UpdateType)
		assert.Positive(t, jobs[0].PayloadVersion)
		assert.Zero(t, f.queue.Len(simplepublishing.QueueDownstream))
	})

	t.Run("enqueues nothing without a Publish item", func(t *testing.T) {
		f := setupImportFixture(t)

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: uuid.NewString(),
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
				{Payload: importPayload("/a", nil)},
			},
		})
		require.NoError(t, err)
		assert.Zero(t, f.queue.Len(simplepublishing.QueueDownstreamLow))
	})

	t.Run("rejects a malformed content id without writing", func(t *testing.T) {
		f := setupImportFixture(t)

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: "not-a-uuid",
			ContentItems: []simplepublishing.ImportItem{
				{Action: "Publish", Payload: importPayload("/a", nil)},
			},
		})

		var validationErr *simplepublishing.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, 422, validationErr.Code())
		assert.Equal(t, "content_id", validationErr.Field)
		assert.Zero(t, f.queue.Len(simplepublishing.QueueDownstreamLow))
	})

	t.Run("rejects unrecognized payload fields listing them", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", map[string]interface{}{
					"bogus_field":   "x",
					"another_bogus": 1,
				})},
			},
		})

		var schemaErr *simplepublishing.SchemaError
		require.ErrorAs(t, err, &schemaErr)
		assert.Equal(t, []string{"another_bogus", "bogus_field"}, schemaErr.Fields)

		items, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.Zero(t, f.queue.Len(simplepublishing.QueueDownstreamLow))
	})

	t.Run("a failing item aborts the whole import", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
				{Payload: importPayload("/a", map[string]interface{}{"bogus": true})},
			},
		})
		require.Error(t, err)

		items, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		assert.Empty(t, items, "no partial application")
	})

	t.Run("two published items for one locale abort the import", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", map[string]interface{}{"state": "published"})},
				{Action: "Publish", Payload: importPayload("/a", map[string]interface{}{"state": "published"})},
			},
		})

		var conflict *simplepublishing.ConflictError
		require.ErrorAs(t, err, &conflict)

		items, repoErr := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, repoErr)
		assert.Empty(t, items, "no partial application")
		assert.Zero(t, f.queue.Len(simplepublishing.QueueDownstreamLow))
	})

	t.Run("replay with an identical payload is idempotent", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()
		req := simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
				{Action: "Publish", Payload: importPayload("/a", map[string]interface{}{"state": "published"})},
			},
		}

		_, err := f.svc.Import(ctx, req)
		require.NoError(t, err)
		first, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)

		_, err = f.svc.Import(ctx, req)
		require.NoError(t, err)
		second, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)

		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].BasePath, second[i].BasePath)
			assert.Equal(t, first[i].State, second[i].State)
			assert.Equal(t, first[i].UserFacingVersion, second[i].UserFacingVersion)
			assert.Equal(t, first[i].LockVersion, second[i].LockVersion)
			assert.NotEqual(t, first[i].ID, second[i].ID, "surrogate ids differ")
		}
	})

	t.Run("creates the link set lazily with lock_version 1", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/a", nil)},
			},
		})
		require.NoError(t, err)

		ls, err := f.repo.GetLinkSet(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		assert.Equal(t, 1, ls.LockVersion)
	})

	t.Run("synthesizes a redirect when the base path changes", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/old-path", nil)},
				{Action: "Publish", Payload: importPayload("/new-path", map[string]interface{}{"state": "published"})},
			},
		})
		require.NoError(t, err)

		items, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		require.Len(t, items, 3)

		redirect := items[0]
		assert.Equal(t, "redirect", redirect.DocumentType)
		assert.Equal(t, "/old-path", redirect.BasePath)
		require.Len(t, redirect.Redirects, 1)
		assert.Equal(t, "/new-path", redirect.Redirects[0].Destination)
	})

	t.Run("a synthesized redirect keeps the old path's routes", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/old-path", map[string]interface{}{
					"routes": []interface{}{
						map[string]interface{}{"path": "/old-path", "type": "exact"},
					},
				})},
				{Action: "Publish", Payload: importPayload("/new-path", map[string]interface{}{"state": "published"})},
			},
		})
		require.NoError(t, err)

		items, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		require.Len(t, items, 3)

		redirect := items[0]
		require.Equal(t, "redirect", redirect.DocumentType)
		require.Len(t, redirect.Routes, 1)
		assert.Equal(t, "/old-path", redirect.Routes[0].Path)
		assert.Equal(t, "exact", redirect.Routes[0].Type)
	})

	t.Run("a routes change alone synthesizes no redirect", func(t *testing.T) {
		f := setupImportFixture(t)
		contentID := uuid.NewString()

		_, err := f.svc.Import(ctx, simplepublishing.ImportRequest{
			ContentID: contentID,
			ContentItems: []simplepublishing.ImportItem{
				{Payload: importPayload("/same-path", map[string]interface{}{
					"routes": []interface{}{
						map[string]interface{}{"path": "/same-path", "type": "exact"},
					},
				})},
				{Payload: importPayload("/same-path", map[string]interface{}{
					"routes": []interface{}{
						map[string]interface{}{"path": "/same-path", "type": "prefix"},
					},
				})},
			},
		})
		require.NoError(t, err)

		items, err := f.repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, item := range items {
			assert.NotEqual(t, "redirect", item.DocumentType)
		}
	})
}

func TestImportSchemaValidation(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	queue := queuememory.NewQueue()

	svc, err := simplepublishing.New(
		simplepublishing.WithRepository(repo),
		simplepublishing.WithJobQueue(queue),
		simplepublishing.WithSchemaValidator(rejectingValidator{}),
	)
	require.NoError(t, err)

	_, err = svc.Import(ctx, simplepublishing.ImportRequest{
		ContentID: uuid.NewString(),
		ContentItems: []simplepublishing.ImportItem{
			{Payload: importPayload("/a", nil)},
		},
	})

	var schemaErr *simplepublishing.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Len(t, schemaErr.Violations, 1)
	assert.Equal(t, "title", schemaErr.Violations[0].Field)
	assert.Zero(t, queue.Len(simplepublishing.QueueDownstreamLow))
}

// rejectingValidator flags every payload's title.
type rejectingValidator struct{}

func (rejectingValidator) Validate(ctx context.Context, schemaName string, payload map[string]interface{}) ([]simplepublishing.Violation, error) {
	return []simplepublishing.Violation{{Field: "title", Message: "is wrong"}}, nil
}

// failingQueue simulates a broken queue backend.
type failingQueue struct{}

func (failingQueue) Enqueue(ctx context.Context, queue string, job simplepublishing.SyncJob) error {
	return errors.New("queue unavailable")
}

func TestImportEnqueueFailureSurfacesAfterCommit(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	svc, err := simplepublishing.New(
		simplepublishing.WithRepository(repo),
		simplepublishing.WithJobQueue(failingQueue{}),
	)
	require.NoError(t, err)

	contentID := uuid.NewString()
	_, err = svc.Import(ctx, simplepublishing.ImportRequest{
		ContentID: contentID,
		ContentItems: []simplepublishing.ImportItem{
			{Action: "Publish", Payload: importPayload("/a", map[string]interface{}{"state": "published"})},
		},
	})
	require.Error(t, err)

	// The enqueue happens strictly after commit; the rows stay.
	items, repoErr := repo.ContentItemsForContentID(ctx, uuid.MustParse(contentID))
	require.NoError(t, repoErr)
	assert.Len(t, items, 1)
}
