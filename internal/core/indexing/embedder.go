package indexing

import "context"

// Embedder はテキストをベクトル表現に変換するインターフェース
// 同じテキストに対しては同じベクトルを返すことが期待される
type Embedder interface {
	// Embed は単一テキストのEmbeddingを生成する
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder はバッチでのEmbedding生成に対応した Embedder
// インデックス構築時は Embedder がこれを実装していればバッチ単位で呼び出す
type BatchEmbedder interface {
	Embedder

	// BatchEmbed はバッチでEmbeddingを生成する（入力と同じ順序・件数で返す）
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)

	// MaxBatchSize は1回のバッチで処理できる最大件数を返す
	MaxBatchSize() int
}

// Metadata は Embedder のメタデータを表す
type Metadata struct {
	ModelName string
	Dimension int
}
