package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	meta := embedder.Metadata()
	assert.Equal(t, "custom-model", meta.ModelName)
	assert.Equal(t, 42, meta.Dimension)
	assert.Equal(t, 100, embedder.MaxBatchSize())
}

func TestNewEmbedderEmptyModelKeepsDefault(t *testing.T) {
	embedder := NewEmbedder("dummy-key", WithEmbeddingModel(""))
	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestEmbedder_BatchEmbed_OrdersByIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-embed", body["model"])
		assert.EqualValues(t, 3, body["dimensions"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"test-embed",
			"data":[
				{"object":"embedding","index":1,"embedding":[0,1,0]},
				{"object":"embedding","index":0,"embedding":[1,0,0]}
			],
			"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer server.Close()

	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("test-embed"),
		WithEmbeddingDimension(3),
		WithEmbeddingBaseURL(server.URL+"/"),
	)

	vectors, err := embedder.BatchEmbed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])
}

func TestEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"m",
			"data":[{"object":"embedding","index":0,"embedding":[1]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer server.Close()

	embedder := NewEmbedder("dummy-key", WithEmbeddingBaseURL(server.URL+"/"))
	_, err := embedder.BatchEmbed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestEmbedder_BatchEmbed_InputValidation(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	_, err := embedder.BatchEmbed(context.Background(), nil)
	assert.Error(t, err)

	_, err = embedder.BatchEmbed(context.Background(), make([]string, 101))
	assert.Error(t, err)
}

func TestOrderedVectors_DuplicateIndex(t *testing.T) {
	data := []openai.Embedding{
		{Index: 0, Embedding: []float64{1}},
		{Index: 0, Embedding: []float64{2}},
	}
	_, err := orderedVectors(data, 2)
	assert.Error(t, err)
}
