package completion

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

func newTestServer(t *testing.T, handler http.HandlerFunc) *Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.BaseURL = srv.URL + "/v1"
	return cfg
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var got map[string]any
	cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"  Hi there!  "},"finish_reason":"stop"}]}`))
	})

	text, err := NewOpenAICompleter(cfg).Complete(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi there!", text)

	assert.Equal(t, "gpt-3.5-turbo", got["model"])
	assert.EqualValues(t, 200, got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 0.001)
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 1)
	first, ok := messages[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "Hello", first["content"])
}

func TestOpenAICompleter_EmptyChoices(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	})

	_, err := NewOpenAICompleter(cfg).Complete(context.Background(), "Hello")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestOpenAICompleter_APIError(t *testing.T) {
	cfg := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	result := NewWorker(cfg, NewOpenAICompleter(cfg), nil).Generate(context.Background(), "Hello")
	require.True(t, result.Failed())
	assert.Contains(t, result.Error, "AI error: ")
	assert.Contains(t, result.Error, "Incorrect API key provided")
}
