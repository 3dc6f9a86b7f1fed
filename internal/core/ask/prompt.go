package ask

import (
	"fmt"
	"strings"

	"github.com/jinford/moodrag/internal/core/search"
)

// DefaultInstruction は回答生成時のデフォルトのシステム指示
const DefaultInstruction = `あなたは利用者の気持ちに寄り添うメンタルヘルス支援アシスタントです。
以下のコンテキスト情報と会話履歴を基に、ユーザーの質問に正確かつ簡潔に回答してください。

## 回答のガイドライン
- コンテキストに含まれる情報を優先して回答してください
- 不明な点がある場合は、推測せずにその旨を述べてください
- ユーザーと同じ言語で回答してください`

// BuildAskPrompt は会話履歴付きのRAG質問応答プロンプトを構築する
// 構成順: システム指示 → 過去の会話（古い順、ターンがない場合は省略）→ 関連文書 → 質問
func BuildAskPrompt(
	instruction string,
	turns []Turn,
	chunks []*search.SearchResult,
	question string,
) string {
	var sb strings.Builder

	// システム指示
	sb.WriteString(strings.TrimSpace(instruction))
	sb.WriteString("\n\n")

	// 過去の会話
	if len(turns) > 0 {
		sb.WriteString("## これまでの会話\n")
		for i, turn := range turns {
			sb.WriteString(fmt.Sprintf("### [ターン %d]\n", i+1))
			sb.WriteString("質問: ")
			sb.WriteString(turn.Question)
			sb.WriteString("\n回答: ")
			sb.WriteString(turn.Answer)
			sb.WriteString("\n\n")
		}
	}

	// 関連文書
	sb.WriteString("## コンテキスト: 関連文書\n")
	if len(chunks) > 0 {
		for i, chunk := range chunks {
			sb.WriteString(fmt.Sprintf("### [文書断片 %d] 関連度: %.3f\n", i+1, chunk.Score))
			sb.WriteString("-----\n")
			sb.WriteString(chunk.Content)
			sb.WriteString("\n-----\n\n")
		}
	} else {
		sb.WriteString("(該当する文書断片はありません)\n\n")
	}

	// ユーザーの質問
	sb.WriteString("## ユーザーの質問\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")

	// 回答セクション
	sb.WriteString("## 回答\n")

	return sb.String()
}
