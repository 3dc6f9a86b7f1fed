package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/moodrag/internal/core/ask"
	"github.com/jinford/moodrag/internal/platform/container"
)

// AskAction は質問応答コマンドのアクション
func AskAction(ctx context.Context, cmd *cli.Command) error {
	// フラグの取得
	showSources := cmd.Bool("show-sources")
	envFile := cmd.String("env")

	// 質問文の取得
	question := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("質問文を指定してください")
	}

	slog.Info("質問応答を開始",
		"question", question,
		"showSources", showSources,
	)

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureAsk))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if _, err := appCtx.Container.LoadIndex(ctx); err != nil {
		return err
	}

	session, err := appCtx.Container.NewSession(ctx, mo.None[uuid.UUID]())
	if err != nil {
		return err
	}

	result, err := session.Ask(ctx, question)
	if err != nil {
		slog.Error("質問応答に失敗しました", "error", err)
		return err
	}

	// 結果出力
	fmt.Println(result.Answer)

	// --show-sourcesフラグが指定されている場合、参照ソースも出力
	if showSources {
		printSources(result.Sources)
	}

	slog.Info("質問応答が完了しました")
	return nil
}

// printSources は回答の根拠となったチャンクを出力する
func printSources(sources []coreask.SourceReference) {
	if len(sources) == 0 {
		return
	}
	fmt.Println("\n--- 参照ソース ---")
	for i, source := range sources {
		fmt.Printf("[%d] 文字 %d-%d スコア: %.4f\n",
			i+1,
			source.StartOffset,
			source.EndOffset,
			source.Score,
		)
		fmt.Printf("    %s\n", preview(source.Content, 80))
	}
}

// preview は改行を除いた先頭 n 文字を返す
func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "…"
}
