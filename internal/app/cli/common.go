package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/moodrag/internal/platform/config"
	"github.com/jinford/moodrag/internal/platform/container"
	"github.com/jinford/moodrag/internal/platform/logger"
)

// AppContext はコマンド実行に必要な共通コンテキストを保持する
type AppContext struct {
	Container *container.ServiceContainer
}

// NewAppContext は設定ファイルを読み込み、依存関係を組み立てて AppContext を作成する
func NewAppContext(ctx context.Context, envFile string, opts ...container.ContainerOption) (*AppContext, error) {
	// 設定の読み込み
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	// ロガーの初期化
	appLogger := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// コンテナの初期化
	opts = append([]container.ContainerOption{container.WithContainerLogger(appLogger)}, opts...)
	cont, err := container.NewContainer(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("コンテナの初期化に失敗: %w", err)
	}

	return &AppContext{
		Container: cont,
	}, nil
}

// Close はAppContextが保持するリソースをクリーンアップする
func (ac *AppContext) Close() {
	if ac.Container != nil {
		ac.Container.Close()
	}
}

// Logger はAppContextのロガーを返す
func (ac *AppContext) Logger() *slog.Logger {
	if ac.Container != nil {
		return ac.Container.Logger()
	}
	return slog.Default()
}
