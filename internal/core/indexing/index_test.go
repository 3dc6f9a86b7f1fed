package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/moodrag/internal/core"
)

func newChunk(ordinal int, text string) Chunk {
	return Chunk{Ordinal: ordinal, StartOffset: ordinal * 10, EndOffset: ordinal*10 + len([]rune(text)), Text: text}
}

func TestIndex_NearestOrdersByCosineSimilarity(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(newChunk(0, "east"), []float32{1, 0}))
	require.NoError(t, index.Add(newChunk(1, "north"), []float32{0, 1}))
	require.NoError(t, index.Add(newChunk(2, "north-east"), []float32{1, 1}))

	matches, err := index.Nearest([]float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "north", matches[0].Chunk.Text)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "north-east", matches[1].Chunk.Text)
	assert.InDelta(t, 0.7071, matches[1].Score, 1e-3)
}

func TestIndex_NearestTieBreakEarlierChunkWins(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(newChunk(0, "first"), []float32{1, 0}))
	require.NoError(t, index.Add(newChunk(1, "other"), []float32{0, 1}))
	require.NoError(t, index.Add(newChunk(2, "second"), []float32{2, 0}))
	require.NoError(t, index.Add(newChunk(3, "third"), []float32{3, 0}))

	matches, err := index.Nearest([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "first", matches[0].Chunk.Text)
	assert.Equal(t, "second", matches[1].Chunk.Text)
	assert.Equal(t, "third", matches[2].Chunk.Text)
}

func TestIndex_NearestKLargerThanIndex(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(newChunk(0, "only"), []float32{1, 2, 3}))

	matches, err := index.Nearest([]float32{1, 2, 3}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestIndex_NearestOnEmptyIndex(t *testing.T) {
	matches, err := NewIndex().Nearest([]float32{1, 2}, 3)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestIndex_NearestInvalidArguments(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(newChunk(0, "a"), []float32{1, 0}))

	_, err := index.Nearest([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = index.Nearest([]float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestIndex_ZeroVectorScoresZero(t *testing.T) {
	index := NewIndex()
	require.NoError(t, index.Add(newChunk(0, "zero"), []float32{0, 0}))

	matches, err := index.Nearest([]float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0.0, matches[0].Score)
}

func TestIndex_AddValidatesInput(t *testing.T) {
	index := NewIndex()

	assert.ErrorIs(t, index.Add(newChunk(0, "a"), nil), core.ErrInvalidArgument)
	assert.ErrorIs(t, index.Add(Chunk{}, []float32{1}), core.ErrInvalidArgument)

	require.NoError(t, index.Add(newChunk(0, "a"), []float32{1, 2}))
	assert.ErrorIs(t, index.Add(newChunk(1, "b"), []float32{1, 2, 3}), core.ErrInvalidArgument)
	assert.Equal(t, 1, index.Len())
	assert.Equal(t, 2, index.Dimension())
}

func TestIndex_StoresCopyOfVector(t *testing.T) {
	index := NewIndex()
	vector := []float32{1, 0}
	require.NoError(t, index.Add(newChunk(0, "a"), vector))

	vector[0] = 0
	vector[1] = 1

	index.Each(func(_ Chunk, v []float32) bool {
		assert.Equal(t, []float32{1, 0}, v)
		v[0] = 42
		return true
	})
	index.Each(func(_ Chunk, v []float32) bool {
		assert.Equal(t, []float32{1, 0}, v)
		return true
	})
}

func TestIndex_ChunksPreserveInsertionOrder(t *testing.T) {
	index := NewIndex()
	for i, text := range []string{"c", "a", "b"} {
		require.NoError(t, index.Add(newChunk(i, text), []float32{float32(i + 1)}))
	}

	assert.Equal(t, []string{"c", "a", "b"}, texts(index.Chunks()))
}

func TestHolder_Swap(t *testing.T) {
	first := NewIndex()
	second := NewIndex()

	holder := NewHolder(first)
	assert.Same(t, first, holder.Current())

	previous := holder.Swap(second)
	assert.Same(t, first, previous)
	assert.Same(t, second, holder.Current())

	assert.Nil(t, NewHolder(nil).Current())
}
