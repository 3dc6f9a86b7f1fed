package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/moodrag/internal/core"
)

// Indexer は文書をチャンクに分割し、Embeddingを付与して Index を構築する
type Indexer struct {
	embedder Embedder
	opts     Options
	logger   *slog.Logger
}

// IndexerOption は Indexer のオプション設定
type IndexerOption func(*Indexer)

// WithIndexerLogger は Indexer にロガーを設定する
func WithIndexerLogger(logger *slog.Logger) IndexerOption {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// NewIndexer は新しい Indexer を作成する
func NewIndexer(embedder Embedder, opts Options, options ...IndexerOption) *Indexer {
	ix := &Indexer{
		embedder: embedder,
		opts:     opts,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix
}

// Build は単一テキストから Index を構築する
func Build(ctx context.Context, text string, opts Options, embedder Embedder) (*Index, error) {
	return NewIndexer(embedder, opts).Build(ctx, text)
}

// NewDocument はソース識別子から決定的なIDを持つ Document を作成する
func NewDocument(source, content, contentType string) Document {
	return Document{
		ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(source)),
		Source:      source,
		Content:     content,
		ContentType: contentType,
	}
}

// Build は単一テキストから Index を構築する
// トリム後に空のテキストは ErrEmptyDocument、Embedding失敗は ErrEmbeddingFailure となり、部分的な Index は返さない
func (ix *Indexer) Build(ctx context.Context, text string) (*Index, error) {
	if err := ix.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyDocument
	}

	doc := Document{
		ID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(text)),
		Content:     text,
		ContentType: "text/plain",
	}
	return ix.build(ctx, []Document{doc})
}

// BuildFromDocuments は文書セットから Index を構築する
// 内容が空の文書はスキップし、1件も残らない場合は ErrEmptyDocument を返す
func (ix *Indexer) BuildFromDocuments(ctx context.Context, docs []Document) (*Index, error) {
	if err := ix.validate(); err != nil {
		return nil, err
	}

	targets := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Content) == "" {
			ix.logger.Warn("skipping empty document", "source", doc.Source)
			continue
		}
		targets = append(targets, doc)
	}
	if len(targets) == 0 {
		return nil, core.ErrEmptyDocument
	}

	return ix.build(ctx, targets)
}

func (ix *Indexer) validate() error {
	if ix.embedder == nil {
		return fmt.Errorf("%w: embedder is required", core.ErrInvalidArgument)
	}
	if ix.opts.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive: %d", core.ErrInvalidArgument, ix.opts.ChunkSize)
	}
	if ix.opts.Overlap < 0 || ix.opts.Overlap >= ix.opts.ChunkSize {
		return fmt.Errorf("%w: overlap must be in [0, %d): %d", core.ErrInvalidArgument, ix.opts.ChunkSize, ix.opts.Overlap)
	}
	return nil
}

func (ix *Indexer) build(ctx context.Context, docs []Document) (*Index, error) {
	var chunks []Chunk
	for _, doc := range docs {
		docChunks, err := Split(doc.Content, ix.opts.ChunkSize, ix.opts.Overlap)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %q: %w", doc.Source, err)
		}
		for i := range docChunks {
			docChunks[i].DocumentID = doc.ID
			docChunks[i].ID = chunkID(doc.ID, docChunks[i])
		}
		chunks = append(chunks, docChunks...)

		ix.logger.Debug("document split",
			"source", doc.Source,
			"chunks", len(docChunks),
		)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	index := NewIndex()
	for i, c := range chunks {
		if err := index.Add(c, vectors[i]); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", core.ErrEmbeddingFailure, i, err)
		}
	}

	ix.logger.Info("index built",
		"documents", len(docs),
		"chunks", index.Len(),
		"dimension", index.Dimension(),
	)

	return index, nil
}

// embedAll は全テキストのEmbeddingを生成する（BatchEmbedder の場合はバッチ単位）
func (ix *Indexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	batcher, ok := ix.embedder.(BatchEmbedder)
	if !ok {
		for i, text := range texts {
			vector, err := ix.embedder.Embed(ctx, text)
			if err != nil {
				return nil, fmt.Errorf("%w: chunk %d: %w", core.ErrEmbeddingFailure, i, err)
			}
			vectors = append(vectors, vector)
		}
		return vectors, nil
	}

	batchSize := batcher.MaxBatchSize()
	if batchSize <= 0 {
		batchSize = len(texts)
	}

	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := batcher.BatchEmbed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: chunks %d-%d: %w", core.ErrEmbeddingFailure, start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", core.ErrEmbeddingFailure, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}
