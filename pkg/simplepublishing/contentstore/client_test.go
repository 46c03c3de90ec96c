package contentstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPut(t *testing.T) {
	ctx := context.Background()

	t.Run("puts JSON to /content plus the base path", func(t *testing.T) {
		var gotMethod, gotPath, gotContentType string
		var gotBody map[string]interface{}

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := NewClient(server.URL)
		status, err := client.Put(ctx, "/vat-rates", map[string]interface{}{
			"title": "VAT rates",
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "/content/vat-rates", gotPath)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "VAT rates", gotBody["title"])
	})

	t.Run("reports the upstream status without interpreting it", func(t *testing.T) {
		for _, code := range []int{200, 202, 400, 409, 500, 502} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))

			client := NewClient(server.URL)
			status, err := client.Put(ctx, "/anything", map[string]interface{}{})
			require.NoError(t, err)
			assert.Equal(t, code, status)
			server.Close()
		}
	})

	t.Run("transport failure yields an error and no status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // refuse connections

		client := NewClient(server.URL)
		status, err := client.Put(ctx, "/anything", map[string]interface{}{})
		assert.Error(t, err)
		assert.Zero(t, status)
	})
}

func TestClientDelete(t *testing.T) {
	ctx := context.Background()

	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	status, err := client.Delete(ctx, "/gone")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/content/gone", gotPath)
}
