package ask

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// Turn は1回の質問と回答のやり取りを表す（不変）
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// History は会話履歴を表す値型
// Append は新しい History を返し、元の History は変更しない
type History struct {
	turns []Turn
}

// NewHistory は指定したターンを持つ History を作成する
func NewHistory(turns ...Turn) History {
	return History{turns: slices.Clone(turns)}
}

// Len はターン数を返す
func (h History) Len() int {
	return len(h.turns)
}

// Turns は古い順のターン一覧のコピーを返す
func (h History) Turns() []Turn {
	return slices.Clone(h.turns)
}

// Append はターンを末尾に追加した新しい History を返す
func (h History) Append(turn Turn) History {
	turns := make([]Turn, len(h.turns), len(h.turns)+1)
	copy(turns, h.turns)
	return History{turns: append(turns, turn)}
}

// Window は直近 n 件のターンを古い順で返す（n <= 0 の場合は空）
func (h History) Window(n int) []Turn {
	if n <= 0 || len(h.turns) == 0 {
		return nil
	}
	start := max(0, len(h.turns)-n)
	return slices.Clone(h.turns[start:])
}

// Last は最新のターンを返す
func (h History) Last() mo.Option[Turn] {
	if len(h.turns) == 0 {
		return mo.None[Turn]()
	}
	return mo.Some(h.turns[len(h.turns)-1])
}

// AskResult は質問応答の結果を表す
type AskResult struct {
	Answer       string            // LLMによる回答
	Sources      []SourceReference // 参照したチャンク
	PromptTurns  int               // プロンプトに含めた過去ターン数
	PromptTokens int               // プロンプトのトークン数（TokenCounter 未設定時は0）
}

// SourceReference は回答の根拠となったチャンクの参照を表す
type SourceReference struct {
	ChunkID     uuid.UUID // チャンクID
	DocumentID  uuid.UUID // 文書ID
	StartOffset int       // 開始オフセット
	EndOffset   int       // 終了オフセット
	Content     string    // チャンク本文
	Score       float64   // 関連度スコア
}
