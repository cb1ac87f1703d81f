package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerpSearcher_Search(t *testing.T) {
	var gotQuery, gotNum string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotNum = r.URL.Query().Get("num")
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"organic_results": []map[string]string{
				{"title": "Fix a black screen", "snippet": "Check the backlight", "link": "https://example.com/a"},
				{"title": "TV repair guide", "snippet": "Step by step", "link": "https://example.com/b"},
				{"title": "Forum thread", "snippet": "Same issue here", "link": "https://example.com/c"},
			},
		})
	}))
	defer server.Close()

	searcher, err := NewSerpSearcher("test-key", server.URL)
	require.NoError(t, err)

	sources, err := searcher.Search(context.Background(), "tv screen is black", 2)
	require.NoError(t, err)

	assert.Equal(t, "how to fix tv screen is black", gotQuery)
	assert.Equal(t, "2", gotNum)
	require.Len(t, sources, 2)
	assert.Equal(t, "Fix a black screen", sources[0].Title)
	assert.Equal(t, "https://example.com/a", sources[0].URL)
}

func TestSerpSearcher_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	searcher, err := NewSerpSearcher("test-key", server.URL)
	require.NoError(t, err)

	sources, err := searcher.Search(context.Background(), "obscure problem", 5)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestSerpSearcher_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	searcher, err := NewSerpSearcher("test-key", server.URL)
	require.NoError(t, err)

	_, err = searcher.Search(context.Background(), "tv screen is black", 5)
	assert.Error(t, err)
}

func TestSerpSearcher_RequiresAPIKey(t *testing.T) {
	_, err := NewSerpSearcher("", "")
	assert.ErrorIs(t, err, ErrNoSearcher)
}
