package postgres

import (
	"time"

	"github.com/google/uuid"
)

// StoredDocument は保存済みの文書のメタデータ
type StoredDocument struct {
	ID          uuid.UUID
	Source      string
	ContentType string
	IndexedAt   time.Time
	ChunkCount  int
}
