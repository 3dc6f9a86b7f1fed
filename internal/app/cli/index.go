package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/moodrag/internal/infra/postgres"
	"github.com/jinford/moodrag/internal/platform/container"
)

// errIndexNotPersistent はメモリモードで index コマンドを実行した場合のエラー
var errIndexNotPersistent = errors.New("INDEX_STORE=memory ではインデックスが保存されないため、構築結果は破棄されます（確認だけ行う場合は --check を指定してください）")

// IndexAction は文書からインデックスを構築するコマンドのアクション
func IndexAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	check := cmd.Bool("check")

	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureIndex))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	c := appCtx.Container

	// Embedding の呼び出し前に保存先を確認する
	if err := ensureIndexStore(c.Persistent(), check); err != nil {
		return err
	}

	slog.Info("インデックスの構築を開始", "path", c.Config().RAG.DocumentPath)

	index, docs, err := c.BuildIndex(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("文書数: %d\nチャンク数: %d\n次元数: %d\n", len(docs), index.Len(), index.Dimension())

	if !c.Persistent() {
		fmt.Println("(--check: インデックスは保存されません)")
		return nil
	}

	if err := c.PersistIndex(ctx, docs, index); err != nil {
		return err
	}
	slog.Info("インデックスをデータベースに保存しました")

	stored, err := c.StoredDocuments(ctx)
	if err != nil {
		return err
	}
	printStoredDocuments(stored)

	return nil
}

// ensureIndexStore はインデックスを保存できない構成での無駄な構築を防ぐ
func ensureIndexStore(persistent, check bool) error {
	if persistent || check {
		return nil
	}
	return errIndexNotPersistent
}

// printStoredDocuments は保存済みの文書を一覧表示する
func printStoredDocuments(docs []postgres.StoredDocument) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Source", "Type", "Chunks", "Indexed At")
	for _, doc := range docs {
		table.Append(doc.Source, doc.ContentType, strconv.Itoa(doc.ChunkCount), doc.IndexedAt.Format("2006-01-02 15:04:05"))
	}
	table.Render()
}
