package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/moodrag/internal/core/indexing"
)

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
type Embedder struct {
	client    openai.Client
	model     string
	dimension int
}

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// maxBatchSize はEmbedding APIの1リクエストあたりの最大入力数
	maxBatchSize = 100
)

type embedderOptions struct {
	model     string
	dimension int
	baseURL   string
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする（0 はモデルのデフォルト）
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingBaseURL はOpenAI互換APIのエンドポイントを指定する
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) *Embedder {
	options := embedderOptions{
		model:     DefaultEmbeddingModel,
		dimension: DefaultEmbeddingDimension,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Embedder{
		client:    openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:     options.model,
		dimension: options.dimension,
	}
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbed は texts をまとめて1リクエストでベクトル化し、入力順に並べて返す
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	switch {
	case len(texts) == 0:
		return nil, fmt.Errorf("no texts provided")
	case len(texts) > maxBatchSize:
		return nil, fmt.Errorf("batch size exceeds maximum of %d", maxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	return orderedVectors(resp.Data, len(texts))
}

// orderedVectors はレスポンスの index に従って float32 ベクトルを並べ直す
func orderedVectors(data []openai.Embedding, want int) ([][]float32, error) {
	if len(data) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(data))
	}

	vectors := make([][]float32, want)
	for _, d := range data {
		pos := int(d.Index)
		if pos < 0 || pos >= want || vectors[pos] != nil {
			return nil, fmt.Errorf("unexpected embedding index: %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[pos] = vec
	}
	return vectors, nil
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// MaxBatchSize はバッチ処理の最大サイズを返す
func (e *Embedder) MaxBatchSize() int {
	return maxBatchSize
}

// Metadata はモデル情報を返す
func (e *Embedder) Metadata() indexing.Metadata {
	return indexing.Metadata{
		ModelName: e.model,
		Dimension: e.dimension,
	}
}

var _ indexing.BatchEmbedder = (*Embedder)(nil)
