package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/mo"

	coreask "github.com/jinford/moodrag/internal/core/ask"
	coreindexing "github.com/jinford/moodrag/internal/core/indexing"
	coremood "github.com/jinford/moodrag/internal/core/mood"
	corequiz "github.com/jinford/moodrag/internal/core/quiz"
	coresearch "github.com/jinford/moodrag/internal/core/search"
	"github.com/jinford/moodrag/internal/infra/loader"
	"github.com/jinford/moodrag/internal/infra/openai"
	"github.com/jinford/moodrag/internal/infra/postgres"
	"github.com/jinford/moodrag/internal/infra/tmdb"
	"github.com/jinford/moodrag/internal/infra/tokenizer"
	"github.com/jinford/moodrag/internal/platform/config"
	"github.com/jinford/moodrag/internal/platform/database"
)

// ServiceContainer はアプリケーションの依存関係を保持する。
type ServiceContainer struct {
	Indexer       *coreindexing.Indexer
	SearchService *coresearch.SearchService
	AskService    *coreask.AskService
	Analyzer      *corequiz.Analyzer
	Loader        *loader.Loader
	Holder        *coreindexing.Holder

	cfg        *config.Config
	catalog    coremood.Catalog
	logger     *slog.Logger
	database   *database.DB
	txProvider *database.TransactionProvider
}

type containerOptions struct {
	logger       *slog.Logger
	embedder     coreindexing.Embedder
	llmClient    coreask.LLMClient
	tokenCounter coreask.TokenCounter
	catalog      coremood.Catalog
	db           *database.DB
	features     []Feature
}

// Feature はコマンドが必要とする機能の単位
// 必要な機能に応じて OpenAI クライアントやデータベース接続だけを初期化する
type Feature int

const (
	// FeatureIndex は文書の読み込み・インデックス構築・検索（Embedding とインデックスの保存先）
	FeatureIndex Feature = iota + 1
	// FeatureAsk は文書に基づく質問応答（FeatureIndex と LLM）
	FeatureAsk
	// FeatureQuiz はクイズ分析（LLM のみ）
	FeatureQuiz
	// FeatureSuggest は映画のおすすめ（映画カタログのみ）
	FeatureSuggest
)

// AllFeatures はすべての機能
var AllFeatures = []Feature{FeatureIndex, FeatureAsk, FeatureQuiz, FeatureSuggest}

// ErrFeatureDisabled は初期化していない機能を使おうとした場合のエラー
var ErrFeatureDisabled = errors.New("feature not initialized")

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder coreindexing.Embedder) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerLLMClient は LLM クライアントを差し替える
func WithContainerLLMClient(client coreask.LLMClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.llmClient = client
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter coreask.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// WithContainerCatalog は映画カタログを差し替える
func WithContainerCatalog(catalog coremood.Catalog) ContainerOption {
	return func(opts *containerOptions) {
		opts.catalog = catalog
	}
}

// WithContainerFeatures は初期化する機能を限定する（未指定の場合はすべて）
func WithContainerFeatures(features ...Feature) ContainerOption {
	return func(opts *containerOptions) {
		opts.features = features
	}
}

// WithContainerDatabase は接続済みの DB を使う（INDEX_STORE=postgres の場合）
func WithContainerDatabase(db *database.DB) ContainerOption {
	return func(opts *containerOptions) {
		opts.db = db
	}
}

// NewContainer は設定からコンテナを生成する。
// WithContainerFeatures で指定した機能に必要な依存だけを初期化し、
// FeatureIndex を含み INDEX_STORE=postgres の場合はデータベースにも接続する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if len(options.features) == 0 {
		options.features = AllFeatures
	}

	needAsk := slices.Contains(options.features, FeatureAsk)
	needIndex := needAsk || slices.Contains(options.features, FeatureIndex)
	needLLM := needAsk || slices.Contains(options.features, FeatureQuiz)

	c := &ServiceContainer{
		Holder:  coreindexing.NewHolder(nil),
		cfg:     cfg,
		catalog: options.catalog,
		logger:  options.logger,
	}

	var llmClient coreask.LLMClient
	if needLLM {
		client, err := newLLMClient(cfg, options)
		if err != nil {
			return nil, err
		}
		llmClient = client
		c.Analyzer = corequiz.NewAnalyzer(llmClient, corequiz.WithAnalyzerLogger(options.logger))
	}

	if needIndex {
		// Embedder (OpenAI)
		embedder := options.embedder
		if embedder == nil {
			embedder = openai.NewEmbedder(
				cfg.OpenAI.APIKey,
				openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
				openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
				openai.WithEmbeddingBaseURL(cfg.OpenAI.BaseURL),
			)
		}

		c.Indexer = coreindexing.NewIndexer(
			embedder,
			coreindexing.Options{ChunkSize: cfg.RAG.ChunkSize, Overlap: cfg.RAG.ChunkOverlap},
			coreindexing.WithIndexerLogger(options.logger),
		)
		c.SearchService = coresearch.NewSearchService(embedder, coresearch.WithSearchLogger(options.logger))
		c.Loader = loader.NewLoader(loader.WithLoaderLogger(options.logger))

		// Database (PostgreSQL)
		db := options.db
		if db == nil && cfg.RAG.IndexStore == config.IndexStorePostgres {
			var err error
			db, err = database.New(ctx, database.ConnectionParams{
				Host:     cfg.Database.Host,
				Port:     cfg.Database.Port,
				User:     cfg.Database.User,
				Password: cfg.Database.Password,
				DBName:   cfg.Database.DBName,
				SSLMode:  cfg.Database.SSLMode,
			})
			if err != nil {
				return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
			}
		}
		if db != nil {
			c.database = db
			c.txProvider = database.NewTransactionProvider(db.Pool)
		}
	}

	if needAsk {
		askOpts := []coreask.AskServiceOption{
			coreask.WithAskLogger(options.logger),
			coreask.WithTopK(cfg.RAG.TopK),
			coreask.WithMaxTurns(cfg.RAG.HistoryMaxTurns),
		}

		// TokenCounter (tiktoken)
		if cfg.RAG.MaxPromptTokens > 0 {
			counter := options.tokenCounter
			if counter == nil {
				counter = newTokenCounter(tokenizer.NewTokenCounter, options.logger)
			}
			askOpts = append(askOpts, coreask.WithTokenBudget(counter, cfg.RAG.MaxPromptTokens))
		}

		c.AskService = coreask.NewAskService(c.SearchService, llmClient, askOpts...)
	}

	return c, nil
}

// newLLMClient は注入されたクライアント、または設定から OpenAI クライアントを返す
func newLLMClient(cfg *config.Config, options containerOptions) (coreask.LLMClient, error) {
	if options.llmClient != nil {
		return options.llmClient, nil
	}

	client, err := openai.NewClient(cfg.OpenAI.APIKey,
		openai.WithModel(cfg.OpenAI.LLMModel),
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithTemperature(cfg.OpenAI.Temperature),
		openai.WithTopP(cfg.OpenAI.TopP),
		openai.WithMaxTokens(cfg.OpenAI.MaxTokens),
		openai.WithClientLogger(options.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI LLMクライアント初期化に失敗しました: %w", err)
	}
	if cfg.OpenAI.RequestsPerMinute > 0 {
		return openai.NewThrottledClient(client, cfg.OpenAI.RequestsPerMinute), nil
	}
	return client, nil
}

// newTokenCounter は tiktoken のカウンタを作成する
// エンコーディングを取得できない場合は文字数からの概算にフォールバックする
func newTokenCounter(build func() (*tokenizer.TokenCounter, error), logger *slog.Logger) coreask.TokenCounter {
	counter, err := build()
	if err != nil {
		logger.Warn("tiktoken を利用できないためトークン数を概算します", "error", err)
		return tokenizer.Estimator{}
	}
	return counter
}

// requireIndexing は FeatureIndex が初期化済みかを確認する
func (c *ServiceContainer) requireIndexing() error {
	if c.Indexer == nil || c.Loader == nil || c.SearchService == nil {
		return fmt.Errorf("インデックス機能: %w", ErrFeatureDisabled)
	}
	return nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Config は設定を返す。
func (c *ServiceContainer) Config() *config.Config {
	return c.cfg
}

// Persistent はインデックスと会話をデータベースに保存するかどうかを返す。
func (c *ServiceContainer) Persistent() bool {
	return c.database != nil
}

// BuildIndex は DOCUMENT_PATH の文書からインデックスを構築する。
func (c *ServiceContainer) BuildIndex(ctx context.Context) (*coreindexing.Index, []coreindexing.Document, error) {
	if err := c.requireIndexing(); err != nil {
		return nil, nil, err
	}
	docs, err := c.Loader.Load(c.cfg.RAG.DocumentPath)
	if err != nil {
		return nil, nil, fmt.Errorf("文書の読み込みに失敗しました: %w", err)
	}

	index, err := c.Indexer.BuildFromDocuments(ctx, docs)
	if err != nil {
		return nil, nil, fmt.Errorf("インデックスの構築に失敗しました: %w", err)
	}

	return index, docs, nil
}

// PersistIndex はインデックスをデータベースに保存する（メモリモードでは何もしない）。
func (c *ServiceContainer) PersistIndex(ctx context.Context, docs []coreindexing.Document, index *coreindexing.Index) error {
	if c.txProvider == nil {
		return nil
	}
	_, err := database.Transact(ctx, c.txProvider, func(a *database.Adapter) (struct{}, error) {
		return struct{}{}, a.Index.Replace(ctx, docs, index)
	})
	if err != nil {
		return fmt.Errorf("インデックスの保存に失敗しました: %w", err)
	}
	return nil
}

// RebuildIndex は文書からインデックスを再構築し、保存した上で差し替える。
// 失敗した場合は以前のインデックスを使い続ける。
func (c *ServiceContainer) RebuildIndex(ctx context.Context) error {
	return c.Holder.Rebuild(ctx, func(ctx context.Context) (*coreindexing.Index, error) {
		index, docs, err := c.BuildIndex(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.PersistIndex(ctx, docs, index); err != nil {
			return nil, err
		}
		return index, nil
	})
}

// LoadIndex は利用可能なインデックスを Holder に設定して返す。
// データベースに保存済みのインデックスがあればそれを使い、なければ文書から構築する。
func (c *ServiceContainer) LoadIndex(ctx context.Context) (*coreindexing.Index, error) {
	if c.database != nil {
		index, err := postgres.NewIndexRepository(c.database.Pool).Load(ctx)
		switch {
		case err == nil:
			c.logger.Info("保存済みのインデックスを読み込みました", "chunks", index.Len())
			c.Holder.Swap(index)
			return index, nil
		case errors.Is(err, postgres.ErrIndexNotFound):
			c.logger.Info("保存済みのインデックスがないため文書から構築します")
		default:
			return nil, fmt.Errorf("インデックスの読み込みに失敗しました: %w", err)
		}
	}

	if err := c.RebuildIndex(ctx); err != nil {
		return nil, err
	}
	return c.Holder.Current(), nil
}

// StoredDocuments はデータベースに保存済みの文書一覧を返す（メモリモードでは空）。
func (c *ServiceContainer) StoredDocuments(ctx context.Context) ([]postgres.StoredDocument, error) {
	if c.database == nil {
		return nil, nil
	}
	docs, err := postgres.NewIndexRepository(c.database.Pool).ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("保存済み文書の取得に失敗しました: %w", err)
	}
	return docs, nil
}

// NewSession は会話セッションを作成する。
// セッションIDが指定された場合は保存済みの履歴から再開する（データベース利用時のみ）。
func (c *ServiceContainer) NewSession(ctx context.Context, sessionID mo.Option[uuid.UUID]) (*coreask.Session, error) {
	if c.AskService == nil {
		return nil, fmt.Errorf("質問応答機能: %w", ErrFeatureDisabled)
	}
	opts := []coreask.SessionOption{coreask.WithSessionLogger(c.logger)}

	if id, ok := sessionID.Get(); ok {
		opts = append(opts, coreask.WithSessionID(id))
		if c.database != nil {
			history, err := postgres.NewTurnRepository(c.database.Pool).ListTurns(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("会話履歴の読み込みに失敗しました: %w", err)
			}
			opts = append(opts, coreask.WithHistory(history))
		}
	}

	if c.database != nil {
		opts = append(opts, coreask.WithTurnRecorder(postgres.NewTurnRepository(c.database.Pool)))
	}

	return coreask.NewSession(c.AskService, c.Holder, opts...), nil
}

// Suggester は気分に応じた映画おすすめサービスを返す。
func (c *ServiceContainer) Suggester() (*coremood.Suggester, error) {
	catalog := c.catalog
	if catalog == nil {
		client, err := tmdb.NewClient(tmdb.Config{
			BaseURL:      c.cfg.TMDB.BaseURL,
			ImageBaseURL: c.cfg.TMDB.ImageBaseURL,
			MovieURL:     c.cfg.TMDB.MovieURL,
			APIKey:       c.cfg.TMDB.APIKey,
		}, tmdb.WithLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("TMDBクライアント初期化に失敗しました: %w", err)
		}
		catalog = client
	}

	mapping, err := coremood.LoadMapping(c.cfg.TMDB.MoodGenreFile)
	if err != nil {
		return nil, fmt.Errorf("気分とジャンルの対応表の読み込みに失敗しました: %w", err)
	}

	return coremood.NewSuggester(catalog,
		coremood.WithMapping(mapping),
		coremood.WithSuggesterLogger(c.logger),
	), nil
}
