package database

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/moodrag/internal/core/ask"
	"github.com/jinford/moodrag/internal/core/indexing"
	"github.com/jinford/moodrag/internal/infra/postgres"
)

// setupDB は pgvector 入りの PostgreSQL コンテナを起動して接続する
// Docker が利用できない環境ではテストをスキップする
func setupDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=moodrag",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=moodrag",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pool.Purge(resource)
	})
	_ = resource.Expire(300)

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)

	params := ConnectionParams{
		Host:     "localhost",
		Port:     port,
		User:     "moodrag",
		Password: "secret",
		DBName:   "moodrag",
		SSLMode:  "disable",
	}

	var db *DB
	pool.MaxWait = 90 * time.Second
	err = pool.Retry(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		db, err = New(ctx, params)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func sampleIndex(t *testing.T) ([]indexing.Document, *indexing.Index) {
	t.Helper()

	doc := indexing.NewDocument("book/output.txt", "Sleep helps. Exercise helps.", "text/plain")
	index := indexing.NewIndex()
	chunks := []struct {
		text   string
		vector []float32
	}{
		{text: "Sleep helps.", vector: []float32{1, 0, 0}},
		{text: " Exercise helps.", vector: []float32{0, 1, 0.5}},
	}
	offset := 0
	for i, c := range chunks {
		n := len([]rune(c.text))
		chunk := indexing.Chunk{
			ID:          uuid.New(),
			DocumentID:  doc.ID,
			Ordinal:     i,
			StartOffset: offset,
			EndOffset:   offset + n,
			Text:        c.text,
		}
		require.NoError(t, index.Add(chunk, c.vector))
		offset += n
	}
	return []indexing.Document{doc}, index
}

func TestIndexRepository_ReplaceAndLoad(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	tp := NewTransactionProvider(db.Pool)

	_, err := postgres.NewIndexRepository(db.Pool).Load(ctx)
	require.ErrorIs(t, err, postgres.ErrIndexNotFound)

	docs, index := sampleIndex(t)
	_, err = Transact(ctx, tp, func(a *Adapter) (struct{}, error) {
		return struct{}{}, a.Index.Replace(ctx, docs, index)
	})
	require.NoError(t, err)

	loaded, err := postgres.NewIndexRepository(db.Pool).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, index.Chunks(), loaded.Chunks())
	assert.Equal(t, 3, loaded.Dimension())

	matches, err := loaded.Nearest([]float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, " Exercise helps.", matches[0].Chunk.Text)

	stored, err := postgres.NewIndexRepository(db.Pool).ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "book/output.txt", stored[0].Source)
	assert.Equal(t, 2, stored[0].ChunkCount)

	// 置き換えると以前のチャンクは残らない
	replacement := indexing.NewIndex()
	require.NoError(t, replacement.Add(indexing.Chunk{ID: uuid.New(), DocumentID: uuid.New(), EndOffset: 4, Text: "calm"}, []float32{1, 1}))
	_, err = Transact(ctx, tp, func(a *Adapter) (struct{}, error) {
		return struct{}{}, a.Index.Replace(ctx, nil, replacement)
	})
	require.NoError(t, err)

	loaded, err = postgres.NewIndexRepository(db.Pool).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, "calm", loaded.Chunks()[0].Text)
}

func TestTransact_RollbackKeepsPreviousIndex(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	tp := NewTransactionProvider(db.Pool)

	docs, index := sampleIndex(t)
	_, err := Transact(ctx, tp, func(a *Adapter) (struct{}, error) {
		return struct{}{}, a.Index.Replace(ctx, docs, index)
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = Transact(ctx, tp, func(a *Adapter) (struct{}, error) {
		if err := a.Index.Replace(ctx, nil, indexing.NewIndex()); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, boom
	})
	require.ErrorIs(t, err, boom)

	loaded, err := postgres.NewIndexRepository(db.Pool).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestTurnRepository_AppendAndList(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := postgres.NewTurnRepository(db.Pool)

	sessionID := uuid.New()
	asked := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AppendTurn(ctx, sessionID, ask.Turn{Question: "q1", Answer: "a1", Timestamp: asked}))
	require.NoError(t, repo.AppendTurn(ctx, sessionID, ask.Turn{Question: "q2", Answer: "a2"}))
	require.NoError(t, repo.AppendTurn(ctx, uuid.New(), ask.Turn{Question: "other", Answer: "x"}))

	history, err := repo.ListTurns(ctx, sessionID)
	require.NoError(t, err)

	turns := history.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].Question)
	assert.True(t, asked.Equal(turns[0].Timestamp))
	assert.Equal(t, "q2", turns[1].Question)
	assert.False(t, turns[1].Timestamp.IsZero())
}
