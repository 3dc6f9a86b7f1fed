package indexing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/moodrag/internal/core"
)

// letterEmbedder はアルファベットの出現回数を26次元ベクトルにする決定的な Embedder
type letterEmbedder struct {
	calls  int
	failOn string
}

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend unavailable")
	}
	return letterVector(text), nil
}

func letterVector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

type stubBatchEmbedder struct {
	maxBatch   int
	batchSizes []int
	dropOne    bool
}

func (e *stubBatchEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("single embed should not be called")
}

func (e *stubBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchSizes = append(e.batchSizes, len(texts))
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, letterVector(text))
	}
	if e.dropOne {
		out = out[1:]
	}
	return out, nil
}

func (e *stubBatchEmbedder) MaxBatchSize() int {
	return e.maxBatch
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIndexer_BuildEmbedsEveryChunk(t *testing.T) {
	embedder := &letterEmbedder{}

	index, err := Build(context.Background(), "AAAA BBBB CCCC", Options{ChunkSize: 6, Overlap: 2}, embedder)
	require.NoError(t, err)

	assert.Equal(t, 3, index.Len())
	assert.Equal(t, 3, embedder.calls)
	assert.Equal(t, 26, index.Dimension())
	assert.Equal(t, []string{"AAAA", " BBBB", "B CCCC"}, texts(index.Chunks()))
}

func TestIndexer_BuildEmptyDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "空文字列", text: ""},
		{name: "空白のみ", text: " \n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embedder := &letterEmbedder{}
			index, err := Build(context.Background(), tt.text, DefaultOptions(), embedder)
			assert.ErrorIs(t, err, core.ErrEmptyDocument)
			assert.Nil(t, index)
			assert.Zero(t, embedder.calls)
		})
	}
}

func TestIndexer_BuildInvalidOptions(t *testing.T) {
	_, err := Build(context.Background(), "text", Options{ChunkSize: 0}, &letterEmbedder{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = Build(context.Background(), "text", Options{ChunkSize: 5, Overlap: 5}, &letterEmbedder{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = Build(context.Background(), "text", DefaultOptions(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestIndexer_EmbeddingFailureAbortsBuild(t *testing.T) {
	embedder := &letterEmbedder{failOn: "CCCC"}

	index, err := Build(context.Background(), "AAAA BBBB CCCC", Options{ChunkSize: 6, Overlap: 2}, embedder)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)
	assert.Contains(t, err.Error(), "embedding backend unavailable")
	assert.Nil(t, index)
}

func TestIndexer_UsesBatchEmbedder(t *testing.T) {
	embedder := &stubBatchEmbedder{maxBatch: 2}

	index, err := Build(context.Background(), "abcdefghij", Options{ChunkSize: 2, Overlap: 0}, embedder)
	require.NoError(t, err)

	assert.Equal(t, 5, index.Len())
	assert.Equal(t, []int{2, 2, 1}, embedder.batchSizes)
}

func TestIndexer_BatchCardinalityMismatch(t *testing.T) {
	embedder := &stubBatchEmbedder{maxBatch: 10, dropOne: true}

	index, err := Build(context.Background(), "abcdefghij", Options{ChunkSize: 2, Overlap: 0}, embedder)
	assert.ErrorIs(t, err, core.ErrEmbeddingFailure)
	assert.Nil(t, index)
}

func TestIndexer_RebuildIsIdempotent(t *testing.T) {
	doc := strings.Repeat("Calm breathing helps. Walk outside when anxious. ", 10)
	opts := Options{ChunkSize: 40, Overlap: 8}

	first, err := Build(context.Background(), doc, opts, &letterEmbedder{})
	require.NoError(t, err)
	second, err := Build(context.Background(), doc, opts, &letterEmbedder{})
	require.NoError(t, err)

	assert.Equal(t, first.Chunks(), second.Chunks())
}

func TestIndexer_BuildFromDocuments(t *testing.T) {
	docs := []Document{
		NewDocument("book/a.txt", "alpha beta gamma", "text/plain"),
		NewDocument("book/empty.txt", "   ", "text/plain"),
		NewDocument("book/b.txt", "delta epsilon", "text/plain"),
	}

	ix := NewIndexer(&letterEmbedder{}, Options{ChunkSize: 100, Overlap: 10}, WithIndexerLogger(discardLogger()))
	index, err := ix.BuildFromDocuments(context.Background(), docs)
	require.NoError(t, err)

	chunks := index.Chunks()
	require.Len(t, chunks, 2)
	assert.Equal(t, docs[0].ID, chunks[0].DocumentID)
	assert.Equal(t, docs[2].ID, chunks[1].DocumentID)
	assert.NotEqual(t, chunks[0].ID, chunks[1].ID)
}

func TestIndexer_BuildFromDocumentsAllEmpty(t *testing.T) {
	ix := NewIndexer(&letterEmbedder{}, DefaultOptions(), WithIndexerLogger(discardLogger()))

	_, err := ix.BuildFromDocuments(context.Background(), nil)
	assert.ErrorIs(t, err, core.ErrEmptyDocument)

	_, err = ix.BuildFromDocuments(context.Background(), []Document{NewDocument("x", "\n", "text/plain")})
	assert.ErrorIs(t, err, core.ErrEmptyDocument)
}

func TestNewDocument_DeterministicID(t *testing.T) {
	a := NewDocument("book/output.txt", "one", "text/plain")
	b := NewDocument("book/output.txt", "two", "text/plain")
	c := NewDocument("book/other.txt", "one", "text/plain")

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestHolder_RebuildKeepsOldIndexOnFailure(t *testing.T) {
	ctx := context.Background()
	indexer := NewIndexer(&letterEmbedder{}, Options{ChunkSize: 20, Overlap: 5}, WithIndexerLogger(discardLogger()))

	initial, err := indexer.Build(ctx, "calm breathing helps")
	require.NoError(t, err)
	holder := NewHolder(initial)

	failing := NewIndexer(&letterEmbedder{failOn: "panic"}, Options{ChunkSize: 20, Overlap: 5}, WithIndexerLogger(discardLogger()))
	err = holder.Rebuild(ctx, func(ctx context.Context) (*Index, error) {
		return failing.Build(ctx, "panic attacks are common")
	})
	require.ErrorIs(t, err, core.ErrEmbeddingFailure)
	assert.Same(t, initial, holder.Current())

	err = holder.Rebuild(ctx, func(ctx context.Context) (*Index, error) {
		return indexer.Build(ctx, "sleep well")
	})
	require.NoError(t, err)
	assert.NotSame(t, initial, holder.Current())
	assert.Equal(t, "sleep well", holder.Current().Chunks()[0].Text)
}
