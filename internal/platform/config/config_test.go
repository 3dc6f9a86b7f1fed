package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv はテスト対象の環境変数を空にする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_LLM_MODEL", "LLM_TEMPERATURE",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "RETRIEVAL_TOP_K", "HISTORY_MAX_TURNS",
		"INDEX_STORE", "LOG_LEVEL", "DB_PORT", "DOCUMENT_PATH", "LLM_REQUESTS_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "book/output.txt", cfg.RAG.DocumentPath)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 2, cfg.RAG.TopK)
	assert.Equal(t, 10, cfg.RAG.HistoryMaxTurns)
	assert.Equal(t, IndexStoreMemory, cfg.RAG.IndexStore)
	assert.InDelta(t, 0.01, cfg.OpenAI.Temperature, 1e-9)
	assert.InDelta(t, 1.0, cfg.OpenAI.TopP, 1e-9)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, 0, cfg.OpenAI.RequestsPerMinute)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("RETRIEVAL_TOP_K", "4")
	t.Setenv("INDEX_STORE", "Postgres")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENAI_BASE_URL", "https://api.groq.com/openai/v1")
	t.Setenv("LLM_REQUESTS_PER_MINUTE", "30")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, IndexStorePostgres, cfg.RAG.IndexStore)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, 30, cfg.OpenAI.RequestsPerMinute)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DOCUMENT_PATH=docs/\nHISTORY_MAX_TURNS=3\n"), 0o644))

	// godotenv は既存の環境変数を上書きしないため未設定にしておく（値は t.Setenv が復元する）
	require.NoError(t, os.Unsetenv("DOCUMENT_PATH"))
	require.NoError(t, os.Unsetenv("HISTORY_MAX_TURNS"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "docs/", cfg.RAG.DocumentPath)
	assert.Equal(t, 3, cfg.RAG.HistoryMaxTurns)
}

func TestLoad_MissingEnvFileTolerated(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "オーバーラップがチャンクサイズ以上", env: map[string]string{"CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"}},
		{name: "TopKが0", env: map[string]string{"RETRIEVAL_TOP_K": "0"}},
		{name: "未知の保存先", env: map[string]string{"INDEX_STORE": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
