package ask

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jinford/moodrag/internal/core"
	"github.com/jinford/moodrag/internal/core/indexing"
	"github.com/jinford/moodrag/internal/core/search"
)

const (
	// DefaultTopK は1回の質問で取得するチャンク数のデフォルト値
	DefaultTopK = 2

	// DefaultMaxTurns はプロンプトに含める過去ターン数のデフォルト値
	DefaultMaxTurns = 10
)

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Retriever は関連チャンクの検索インターフェース
type Retriever interface {
	Retrieve(ctx context.Context, index *indexing.Index, query string, k int) ([]*search.SearchResult, error)
}

// TokenCounter はテキストのトークン数をカウントするインターフェース
type TokenCounter interface {
	CountTokens(text string) int
}

// AskService は会話履歴を踏まえたRAG質問応答を提供する
type AskService struct {
	retriever       Retriever
	llm             LLMClient
	topK            int
	maxTurns        int
	instruction     string
	tokenCounter    TokenCounter
	maxPromptTokens int
	now             func() time.Time
	logger          *slog.Logger
}

// AskServiceOption は AskService のオプション設定
type AskServiceOption func(*AskService)

// WithAskLogger は AskService にロガーを設定する
func WithAskLogger(logger *slog.Logger) AskServiceOption {
	return func(s *AskService) {
		s.logger = logger
	}
}

// WithTopK は1回の質問で取得するチャンク数を設定する
func WithTopK(k int) AskServiceOption {
	return func(s *AskService) {
		s.topK = k
	}
}

// WithMaxTurns はプロンプトに含める過去ターン数の上限を設定する（0 で履歴を含めない）
func WithMaxTurns(n int) AskServiceOption {
	return func(s *AskService) {
		s.maxTurns = n
	}
}

// WithInstruction はシステム指示を差し替える
func WithInstruction(instruction string) AskServiceOption {
	return func(s *AskService) {
		s.instruction = instruction
	}
}

// WithTokenBudget はプロンプトのトークン上限を設定する
// 上限を超える場合は古いターンから順にプロンプトへ含めないようにする
func WithTokenBudget(counter TokenCounter, maxTokens int) AskServiceOption {
	return func(s *AskService) {
		s.tokenCounter = counter
		s.maxPromptTokens = maxTokens
	}
}

// WithClock はターンのタイムスタンプに使う時刻関数を差し替える
func WithClock(now func() time.Time) AskServiceOption {
	return func(s *AskService) {
		s.now = now
	}
}

// NewAskService は新しいAskServiceを作成する
func NewAskService(retriever Retriever, llm LLMClient, opts ...AskServiceOption) *AskService {
	svc := &AskService{
		retriever:   retriever,
		llm:         llm,
		topK:        DefaultTopK,
		maxTurns:    DefaultMaxTurns,
		instruction: DefaultInstruction,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.topK <= 0 {
		svc.topK = DefaultTopK
	}
	if svc.now == nil {
		svc.now = time.Now
	}

	return svc
}

// Ask は会話履歴と検索結果を基に回答を生成し、ターンを追加した新しい履歴を返す
// 失敗した場合は渡された履歴をそのまま返し、失敗したターンは記録しない
func (s *AskService) Ask(ctx context.Context, history History, index *indexing.Index, question string) (*AskResult, History, error) {
	// 1. バリデーション
	if strings.TrimSpace(question) == "" {
		return nil, history, fmt.Errorf("%w: question is required", core.ErrInvalidArgument)
	}

	// 2. 関連チャンクの検索
	chunks, err := s.retriever.Retrieve(ctx, index, question, s.topK)
	if err != nil {
		return nil, history, fmt.Errorf("retrieval failed: %w", err)
	}

	s.logger.Info("retrieval completed",
		"topK", s.topK,
		"chunks", len(chunks),
		"historyTurns", history.Len(),
	)

	// 3. プロンプト構築
	turns := history.Window(s.maxTurns)
	prompt, turns, tokens := s.buildPrompt(turns, chunks, question)

	// 4. LLMで回答生成
	s.logger.Info("generating answer with LLM",
		"promptTurns", len(turns),
		"promptTokens", tokens,
	)
	answer, err := s.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return nil, history, fmt.Errorf("%w: %w", core.ErrCompletionFailure, err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, history, fmt.Errorf("%w: empty answer", core.ErrCompletionFailure)
	}

	// 5. ターンを記録
	updated := history.Append(Turn{
		Question:  question,
		Answer:    answer,
		Timestamp: s.now(),
	})

	sources := make([]SourceReference, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, SourceReference{
			ChunkID:     chunk.ChunkID,
			DocumentID:  chunk.DocumentID,
			StartOffset: chunk.StartOffset,
			EndOffset:   chunk.EndOffset,
			Content:     chunk.Content,
			Score:       chunk.Score,
		})
	}

	s.logger.Info("ask completed successfully",
		"answerLength", len(answer),
		"sources", len(sources),
		"historyTurns", updated.Len(),
	)

	return &AskResult{
		Answer:       answer,
		Sources:      sources,
		PromptTurns:  len(turns),
		PromptTokens: tokens,
	}, updated, nil
}

// buildPrompt はトークン上限に収まるまで古いターンを除外しながらプロンプトを構築する
func (s *AskService) buildPrompt(turns []Turn, chunks []*search.SearchResult, question string) (string, []Turn, int) {
	prompt := BuildAskPrompt(s.instruction, turns, chunks, question)
	if s.tokenCounter == nil {
		return prompt, turns, 0
	}

	tokens := s.tokenCounter.CountTokens(prompt)
	for s.maxPromptTokens > 0 && tokens > s.maxPromptTokens && len(turns) > 0 {
		turns = turns[1:]
		prompt = BuildAskPrompt(s.instruction, turns, chunks, question)
		tokens = s.tokenCounter.CountTokens(prompt)
	}

	if s.maxPromptTokens > 0 && tokens > s.maxPromptTokens {
		s.logger.Warn("prompt exceeds token budget without history",
			"promptTokens", tokens,
			"maxPromptTokens", s.maxPromptTokens,
		)
	}

	return prompt, turns, tokens
}
