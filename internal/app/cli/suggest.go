package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	coremood "github.com/jinford/moodrag/internal/core/mood"
	"github.com/jinford/moodrag/internal/platform/container"
)

// SuggestAction は気分に応じた映画をおすすめするコマンドのアクション
func SuggestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	mood := coremood.Normalize(cmd.String("mood"))
	if mood == "" {
		return fmt.Errorf("--mood を指定してください")
	}

	appCtx, err := NewAppContext(ctx, envFile, container.WithContainerFeatures(container.FeatureSuggest))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	suggester, err := appCtx.Container.Suggester()
	if err != nil {
		return err
	}

	suggestions, err := suggester.Suggest(ctx, mood)
	if err != nil {
		return fmt.Errorf("おすすめの取得に失敗しました: %w", err)
	}

	if len(suggestions) == 0 {
		fmt.Printf("気分 %q に対応するおすすめはありません（指定可能: %s）\n", mood, moodNames())
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Genre", "Title", "Release", "Link")
	for _, s := range suggestions {
		for _, movie := range s.Movies {
			table.Append(s.Genre, movie.Title, movie.ReleaseDate, movie.Link)
		}
	}
	table.Render()

	return nil
}

func moodNames() string {
	names := make([]string, len(coremood.Moods))
	for i, m := range coremood.Moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}
