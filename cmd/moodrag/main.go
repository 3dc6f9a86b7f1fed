package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	appcli "github.com/jinford/moodrag/internal/app/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "moodrag",
		Usage: "気分に寄り添うメンタルヘルス支援アシスタント（RAG）",
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "文書からインデックスを構築してデータベースに保存",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "check",
						Usage: "INDEX_STORE=memory でも構築だけ行い、結果を確認する",
					},
				},
				Action: appcli.IndexAction,
			},
			{
				Name:      "ask",
				Usage:     "文書に基づいて質問に回答",
				ArgsUsage: "<質問文>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "回答の根拠となった文書断片を表示",
					},
				},
				Action: appcli.AskAction,
			},
			{
				Name:  "chat",
				Usage: "会話履歴を保ちながら対話的に質問応答",
				Flags: []cli.Flag{
					envFlag(),
					&cli.BoolFlag{
						Name:  "show-sources",
						Usage: "回答の根拠となった文書断片を表示",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "文書の変更を監視してインデックスを自動で再構築",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "再開するセッションID（データベース利用時のみ履歴を復元）",
					},
				},
				Action: appcli.ChatAction,
			},
			{
				Name:      "search",
				Usage:     "質問に近い文書断片を検索",
				ArgsUsage: "<検索文>",
				Flags: []cli.Flag{
					envFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "表示件数",
						Value: 5,
					},
				},
				Action: appcli.SearchAction,
			},
			{
				Name:  "quiz",
				Usage: "メンタルヘルスクイズの回答を分析",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "質問と回答を含むJSONファイル",
						Required: true,
					},
				},
				Action: appcli.QuizAction,
			},
			{
				Name:  "suggest",
				Usage: "気分に合った映画をおすすめ",
				Flags: []cli.Flag{
					envFlag(),
					&cli.StringFlag{
						Name:     "mood",
						Usage:    "気分 (happy/sad/angry/fearful/surprised/disgusted/neutral)",
						Required: true,
					},
				},
				Action: appcli.SuggestAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
