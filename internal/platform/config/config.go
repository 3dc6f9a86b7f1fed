package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// IndexStore はインデックスの保存先
type IndexStore string

const (
	// IndexStoreMemory は起動のたびに文書からインデックスを構築する
	IndexStoreMemory IndexStore = "memory"
	// IndexStorePostgres はPostgreSQLに保存したインデックスを読み込む
	IndexStorePostgres IndexStore = "postgres"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI互換API設定（Embeddings + LLM）
	OpenAI OpenAIConfig

	// RAG設定
	RAG RAGConfig

	// 映画おすすめ設定
	TMDB TMDBConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI互換API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string // Groq等のOpenAI互換エンドポイント（空の場合はOpenAI）
	EmbeddingModel     string
	EmbeddingDimension int
	LLMModel           string
	Temperature        float64
	TopP               float64
	MaxTokens          int
	RequestsPerMinute  int // 0 の場合はレート制限なし
}

// RAGConfig は文書インデックスと会話の設定
type RAGConfig struct {
	DocumentPath    string
	ChunkSize       int
	ChunkOverlap    int
	TopK            int
	HistoryMaxTurns int
	MaxPromptTokens int // 0 の場合はトークン上限なし
	IndexStore      IndexStore
}

// TMDBConfig は映画カタログAPI設定
type TMDBConfig struct {
	BaseURL       string
	ImageBaseURL  string
	MovieURL      string
	APIKey        string
	MoodGenreFile string
}

// LogConfig はログ出力設定
type LogConfig struct {
	Level  slog.Level
	Format string
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "moodrag"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "moodrag"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			LLMModel:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			Temperature:        getEnvAsFloat("LLM_TEMPERATURE", 0.01),
			TopP:               getEnvAsFloat("LLM_TOP_P", 1.0),
			MaxTokens:          getEnvAsInt("LLM_MAX_TOKENS", 0),
			RequestsPerMinute:  getEnvAsInt("LLM_REQUESTS_PER_MINUTE", 0),
		},
		RAG: RAGConfig{
			DocumentPath:    getEnv("DOCUMENT_PATH", "book/output.txt"),
			ChunkSize:       getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
			TopK:            getEnvAsInt("RETRIEVAL_TOP_K", 2),
			HistoryMaxTurns: getEnvAsInt("HISTORY_MAX_TURNS", 10),
			MaxPromptTokens: getEnvAsInt("MAX_PROMPT_TOKENS", 0),
			IndexStore:      IndexStore(strings.ToLower(getEnv("INDEX_STORE", string(IndexStoreMemory)))),
		},
		TMDB: TMDBConfig{
			BaseURL:       getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			ImageBaseURL:  getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/w500"),
			MovieURL:      getEnv("TMDB_MOVIE_URL", "https://www.themoviedb.org/movie/"),
			APIKey:        getEnv("TMDB_API_KEY", ""),
			MoodGenreFile: getEnv("MOOD_GENRE_FILE", ""),
		},
		Log: LogConfig{
			Level:  getEnvAsLevel("LOG_LEVEL", slog.LevelInfo),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive: %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE): %d", c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive: %d", c.RAG.TopK)
	}
	switch c.RAG.IndexStore {
	case IndexStoreMemory, IndexStorePostgres:
	default:
		return fmt.Errorf("INDEX_STORE must be %q or %q: %q", IndexStoreMemory, IndexStorePostgres, c.RAG.IndexStore)
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsLevel は環境変数をログレベルとして取得します（debug/info/warn/error）
func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		return defaultValue
	}
	return level
}
