package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/moodrag/internal/platform/container"
)

// SearchAction はインデックスを検索して関連チャンクを一覧表示するコマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	limit := int(cmd.Int("limit"))

	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("検索クエリを指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureIndex))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	c := appCtx.Container
	index, err := c.LoadIndex(ctx)
	if err != nil {
		return err
	}

	if limit <= 0 {
		limit = c.Config().RAG.TopK
	}

	results, err := c.SearchService.Retrieve(ctx, index, query, limit)
	if err != nil {
		return fmt.Errorf("検索に失敗しました: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("該当するチャンクはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Score", "Offsets", "Content")
	for i, r := range results {
		table.Append(
			strconv.Itoa(i+1),
			fmt.Sprintf("%.4f", r.Score),
			fmt.Sprintf("%d-%d", r.StartOffset, r.EndOffset),
			preview(r.Content, 60),
		)
	}
	table.Render()

	return nil
}
