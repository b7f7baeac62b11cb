package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTavilyClient_Validation(t *testing.T) {
	_, err := NewTavilyClient(Config{})
	assert.ErrorContains(t, err, "API key not configured")

	_, err = NewTavilyClient(Config{APIKey: "k", BaseURL: "not a url"})
	assert.ErrorContains(t, err, "invalid tavily base URL")

	client, err := NewTavilyClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, 5, client.maxResults)
}

func TestTavilyClient_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)

		var body searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tvly-test", body.APIKey)
		assert.Equal(t, "current visitors traffic https://example.com", body.Query)
		assert.Equal(t, "basic", body.SearchDepth)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"query": "current visitors traffic https://example.com",
			"results": [
				{"title": "Example stats", "url": "https://stats.example", "content": "About 1200 visitors right now", "score": 0.9}
			]
		}`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(Config{APIKey: "tvly-test", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	resp, err := client.Search(context.Background(), "current visitors traffic https://example.com")
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "About 1200 visitors right now", resp.Results[0].Content)
}

func TestTavilyClient_Search_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "q")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid api key")
}

func TestTavilyClient_Search_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client, err := NewTavilyClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Search(context.Background(), "q")
	assert.ErrorContains(t, err, "failed to parse response")
}
