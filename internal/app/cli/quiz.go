package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/moodrag/internal/platform/container"
)

// quizFile はクイズ回答ファイルの形式
type quizFile struct {
	Questions []string `json:"questions"`
	Answers   []string `json:"answers"`
}

// QuizAction はメンタルヘルスクイズの回答を分析するコマンドのアクション
func QuizAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	path := cmd.String("file")

	quiz, err := readQuizFile(path)
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureQuiz))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("クイズの分析を開始", "questions", len(quiz.Questions))

	summary, err := appCtx.Container.Analyzer.Analyze(ctx, quiz.Questions, quiz.Answers)
	if err != nil {
		return fmt.Errorf("クイズの分析に失敗しました: %w", err)
	}

	fmt.Println(summary)
	return nil
}

func readQuizFile(path string) (*quizFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("クイズファイルの読み込みに失敗しました: %w", err)
	}
	var quiz quizFile
	if err := json.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("クイズファイルの解析に失敗しました: %w", err)
	}
	return &quiz, nil
}
