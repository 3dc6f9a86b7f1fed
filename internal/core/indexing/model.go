package indexing

import (
	"fmt"

	"github.com/google/uuid"
)

// Document はインデックス化対象の文書を表す（読み込み後は不変）
type Document struct {
	ID          uuid.UUID `json:"id"`
	Source      string    `json:"source"`      // ファイルパスまたは任意の識別子
	Content     string    `json:"content"`     // 文書本文
	ContentType string    `json:"contentType"` // MIMEタイプ
}

// Chunk は文書の部分文字列を表す
// StartOffset / EndOffset は Document.Content 上のルーン（文字）単位のオフセット [StartOffset, EndOffset)
type Chunk struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"documentID"`
	Ordinal     int       `json:"ordinal"`
	StartOffset int       `json:"startOffset"`
	EndOffset   int       `json:"endOffset"`
	Text        string    `json:"text"`
}

// Len はチャンクの文字数を返す
func (c Chunk) Len() int {
	return c.EndOffset - c.StartOffset
}

// Match は類似度スコア付きのチャンクを表す
type Match struct {
	Chunk Chunk
	Score float64
}

// Options はインデックス構築時のチャンク分割設定
type Options struct {
	ChunkSize int // チャンクの最大文字数
	Overlap   int // 隣接チャンクとのオーバーラップ文字数
}

// DefaultOptions はデフォルトのチャンク分割設定を返す
func DefaultOptions() Options {
	return Options{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// chunkID は文書IDとオフセットから決定的なチャンクIDを生成する
func chunkID(documentID uuid.UUID, c Chunk) uuid.UUID {
	key := fmt.Sprintf("%d:%d:%d", c.Ordinal, c.StartOffset, c.EndOffset)
	return uuid.NewSHA1(documentID, []byte(key))
}
