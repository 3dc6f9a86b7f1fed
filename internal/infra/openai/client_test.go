package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{"id":"chatcmpl-1","object":"chat.completion","created":0,"model":"test-model",
	"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Take a short walk."}}],
	"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`

func newTestClient(t *testing.T, server *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{
		WithBaseURL(server.URL + "/"),
		WithModel("test-model"),
		WithClientLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		withBackoff(time.Millisecond),
	}, opts...)
	client, err := NewClient("dummy-key", opts...)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient("")
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestClient_GenerateCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.InDelta(t, 0.2, body["temperature"], 1e-9)
		assert.InDelta(t, 0.9, body["top_p"], 1e-9)
		assert.EqualValues(t, 256, body["max_tokens"])

		messages, ok := body["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]any)
		assert.Equal(t, "user", msg["role"])
		assert.Equal(t, "How do I relax?", msg["content"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	client := newTestClient(t, server, WithTemperature(0.2), WithTopP(0.9), WithMaxTokens(256))
	answer, err := client.GenerateCompletion(context.Background(), "How do I relax?")
	require.NoError(t, err)
	assert.Equal(t, "Take a short walk.", answer)
}

func TestClient_GenerateCompletion_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	answer, err := newTestClient(t, server).GenerateCompletion(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Take a short walk.", answer)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_GenerateCompletion_MaxRetriesExceeded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GenerateCompletion(context.Background(), "hi")
	assert.True(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.EqualValues(t, MaxRetries+1, calls.Load())
}

func TestClient_GenerateCompletion_NonRetryableError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GenerateCompletion(context.Background(), "hi")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMaxRetriesExceeded))
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_GenerateCompletion_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server).GenerateCompletion(context.Background(), "hi")
	assert.Error(t, err)
}
