package schemavalidator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ctx := context.Background()

	newGuideValidator := func() *Validator {
		v := New()
		v.Register("guide", Schema{
			Required: []string{"title", "base_path"},
			Rules: map[string]string{
				"base_path":   "startswith=/",
				"update_type": "oneof=major minor",
			},
		})
		return v
	}

	t.Run("a conforming payload has no violations", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"title":       "VAT rates",
			"base_path":   "/vat-rates",
			"update_type": "major",
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("missing required fields are reported", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"title": "VAT rates",
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "base_path", violations[0].Field)
		assert.Equal(t, "is required", violations[0].Message)
	})

	t.Run("empty string counts as missing", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"title":     "",
			"base_path": "/vat-rates",
		})
		require.NoError(t, err)
		require.Len(t, violations, 1)
		assert.Equal(t, "title", violations[0].Field)
	})

	t.Run("rule violations name the failing tag", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"title":       "VAT rates",
			"base_path":   "no-leading-slash",
			"update_type": "gigantic",
		})
		require.NoError(t, err)
		require.Len(t, violations, 2)

		byField := map[string]string{}
		for _, violation := range violations {
			byField[violation.Field] = violation.Message
		}
		assert.Contains(t, byField["base_path"], "startswith")
		assert.Contains(t, byField["update_type"], "oneof")
	})

	t.Run("rules only apply to present fields", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"title":     "VAT rates",
			"base_path": "/vat-rates",
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("unregistered schema names pass", func(t *testing.T) {
		v := newGuideValidator()
		violations, err := v.Validate(ctx, "something_else", map[string]interface{}{})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})

	t.Run("re-registering replaces the schema", func(t *testing.T) {
		v := newGuideValidator()
		v.Register("guide", Schema{Required: []string{"description"}})

		violations, err := v.Validate(ctx, "guide", map[string]interface{}{
			"description": "present",
		})
		require.NoError(t, err)
		assert.Empty(t, violations)
	})
}
