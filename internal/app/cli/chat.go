package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/samber/mo"
	"github.com/urfave/cli/v3"

	coreask "github.com/jinford/moodrag/internal/core/ask"
	"github.com/jinford/moodrag/internal/infra/watcher"
	"github.com/jinford/moodrag/internal/platform/container"
)

// chatCommand はチャット中に使える特殊コマンド
type chatCommand string

const (
	chatCommandExit    chatCommand = "/exit"
	chatCommandReset   chatCommand = "/reset"
	chatCommandHistory chatCommand = "/history"
	chatCommandHelp    chatCommand = "/help"
)

// ChatAction は対話的に質問応答を続けるコマンドのアクション
func ChatAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	watch := cmd.Bool("watch")
	showSources := cmd.Bool("show-sources")

	sessionID, err := parseSessionID(cmd.String("session"))
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureAsk))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	c := appCtx.Container
	if _, err := c.LoadIndex(ctx); err != nil {
		return err
	}

	session, err := c.NewSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if watch {
		logger := appCtx.Logger()
		w := watcher.New(c.Config().RAG.DocumentPath, watcher.WithLogger(logger))
		go func() {
			err := w.Run(ctx, func(ctx context.Context) {
				if err := c.RebuildIndex(ctx); err != nil {
					logger.Warn("インデックスの再構築に失敗したため以前のインデックスを使い続けます", "error", err)
					return
				}
				logger.Info("文書の変更を検知してインデックスを再構築しました", "chunks", c.Holder.Current().Len())
			})
			if err != nil {
				logger.Error("文書の監視に失敗しました", "error", err)
			}
		}()
	}

	fmt.Printf("セッション: %s\n", session.ID())
	fmt.Println("質問を入力してください（/help でコマンド一覧）")

	for {
		prompt := promptui.Prompt{
			Label: "あなた",
		}
		input, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}
			return fmt.Errorf("入力の読み込みに失敗しました: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := handleChatCommand(chatCommand(input), session); done {
				return nil
			}
			continue
		}

		result, err := session.Ask(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// 失敗したターンは履歴に残らないので、そのまま次の質問を受け付ける
			fmt.Printf("回答の生成に失敗しました: %v\n", err)
			continue
		}

		fmt.Printf("\nアシスタント: %s\n\n", result.Answer)
		if showSources {
			printSources(result.Sources)
			fmt.Println()
		}
	}
}

// handleChatCommand は特殊コマンドを処理し、チャットを終了する場合は true を返す
func handleChatCommand(command chatCommand, session *coreask.Session) bool {
	switch command {
	case chatCommandExit:
		fmt.Println("チャットを終了します")
		return true
	case chatCommandReset:
		session.Reset()
		fmt.Println("会話履歴をリセットしました")
	case chatCommandHistory:
		printHistory(session.History())
	case chatCommandHelp:
		fmt.Println("/history  これまでの会話を表示")
		fmt.Println("/reset    会話履歴をリセット")
		fmt.Println("/exit     チャットを終了")
	default:
		fmt.Printf("不明なコマンドです: %s\n", command)
	}
	return false
}

// printHistory は会話履歴を古い順に表示する
func printHistory(history coreask.History) {
	turns := history.Turns()
	if len(turns) == 0 {
		fmt.Println("(会話履歴はありません)")
		return
	}
	for i, turn := range turns {
		fmt.Printf("[%d] %s\n", i+1, turn.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Q: %s\n", turn.Question)
		fmt.Printf("  A: %s\n", preview(turn.Answer, 120))
	}
}

// parseSessionID は --session フラグの値をセッションIDに変換する
func parseSessionID(value string) (mo.Option[uuid.UUID], error) {
	if value == "" {
		return mo.None[uuid.UUID](), nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return mo.None[uuid.UUID](), fmt.Errorf("セッションIDの形式が不正です: %w", err)
	}
	return mo.Some(id), nil
}
