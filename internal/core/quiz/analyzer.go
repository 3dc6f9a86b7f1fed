package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinford/moodrag/internal/core"
)

// LLMClient はLLM通信インターフェース
type LLMClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// Analyzer はメンタルヘルスクイズの回答から心理状態の要約を生成する
type Analyzer struct {
	llm    LLMClient
	logger *slog.Logger
}

// AnalyzerOption は Analyzer のオプション設定
type AnalyzerOption func(*Analyzer)

// WithAnalyzerLogger は Analyzer にロガーを設定する
func WithAnalyzerLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// NewAnalyzer は新しい Analyzer を作成する
func NewAnalyzer(llm LLMClient, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		llm:    llm,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Analyze は質問と回答の組から心理状態の要約を返す
func (a *Analyzer) Analyze(ctx context.Context, questions, answers []string) (string, error) {
	if len(questions) == 0 {
		return "", fmt.Errorf("%w: questions are required", core.ErrInvalidArgument)
	}
	if len(questions) != len(answers) {
		return "", fmt.Errorf("%w: got %d questions but %d answers", core.ErrInvalidArgument, len(questions), len(answers))
	}

	prompt := BuildAnalysisPrompt(questions, answers)

	a.logger.Info("analyzing quiz responses", "questions", len(questions))

	summary, err := a.llm.GenerateCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrCompletionFailure, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", core.ErrCompletionFailure)
	}

	return summary, nil
}

// BuildAnalysisPrompt はクイズ分析用のプロンプトを構築する
func BuildAnalysisPrompt(questions, answers []string) string {
	var sb strings.Builder

	sb.WriteString("You are a psychologist analyzing responses to a mental health quiz. ")
	sb.WriteString("Based on the following questions and answers, provide a brief summary ")
	sb.WriteString("of the person's mental state:\n\n")

	sb.WriteString("Questions:\n")
	writeNumbered(&sb, questions)
	sb.WriteString("\n\n")

	sb.WriteString("Answers:\n")
	writeNumbered(&sb, answers)
	sb.WriteString("\n\n")

	sb.WriteString("Summary of mental state:")

	return sb.String()
}

func writeNumbered(sb *strings.Builder, items []string) {
	for i, item := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(sb, "%d. %s", i+1, item)
	}
}
