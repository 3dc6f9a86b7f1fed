package search

import (
	"github.com/google/uuid"
)

// SearchResult はベクトル検索の結果を表す
type SearchResult struct {
	ChunkID     uuid.UUID `json:"chunkID"`
	DocumentID  uuid.UUID `json:"documentID"`
	Ordinal     int       `json:"ordinal"`
	StartOffset int       `json:"startOffset"`
	EndOffset   int       `json:"endOffset"`
	Content     string    `json:"content"`
	Score       float64   `json:"score"`
}
