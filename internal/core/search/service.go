package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/moodrag/internal/core"
	"github.com/jinford/moodrag/internal/core/indexing"
)

// Embedder はテキストのEmbedding生成インターフェース
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchService は検索のビジネスロジックを提供する
type SearchService struct {
	embedder Embedder
	logger   *slog.Logger
}

// SearchServiceOption は SearchService のオプション設定
type SearchServiceOption func(*SearchService)

// WithSearchLogger は SearchService にロガーを設定する
func WithSearchLogger(logger *slog.Logger) SearchServiceOption {
	return func(s *SearchService) {
		s.logger = logger
	}
}

// NewSearchService は新しいSearchServiceを作成する
func NewSearchService(embedder Embedder, opts ...SearchServiceOption) *SearchService {
	svc := &SearchService{
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

// Retrieve はクエリとの類似度が高い上位 k 件のチャンクを返す
func Retrieve(ctx context.Context, index *indexing.Index, query string, k int, embedder Embedder) ([]*SearchResult, error) {
	return NewSearchService(embedder).Retrieve(ctx, index, query, k)
}

// Retrieve はクエリとの類似度が高い上位 k 件のチャンクを返す
// 空のインデックスに対しては Embedding を生成せずに空の結果を返す
func (s *SearchService) Retrieve(ctx context.Context, index *indexing.Index, query string, k int) ([]*SearchResult, error) {
	// バリデーション
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive: %d", core.ErrInvalidArgument, k)
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", core.ErrInvalidArgument)
	}
	if index == nil || index.Len() == 0 {
		return []*SearchResult{}, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", core.ErrInvalidArgument)
	}

	// クエリをEmbeddingに変換
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %w", core.ErrEmbeddingFailure, err)
	}

	if len(queryVector) != index.Dimension() {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", core.ErrEmbeddingFailure, len(queryVector), index.Dimension())
	}

	matches, err := index.Nearest(queryVector, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, &SearchResult{
			ChunkID:     m.Chunk.ID,
			DocumentID:  m.Chunk.DocumentID,
			Ordinal:     m.Chunk.Ordinal,
			StartOffset: m.Chunk.StartOffset,
			EndOffset:   m.Chunk.EndOffset,
			Content:     m.Chunk.Text,
			Score:       m.Score,
		})
	}

	s.logger.Debug("retrieval completed",
		"k", k,
		"indexSize", index.Len(),
		"results", len(results),
	)

	return results, nil
}
