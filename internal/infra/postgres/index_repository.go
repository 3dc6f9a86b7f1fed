package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/jinford/moodrag/internal/core/indexing"
)

// IndexRepository はチャンクとEmbeddingを PostgreSQL に保存・復元する
type IndexRepository struct {
	db DBTX
}

// NewIndexRepository は新しい IndexRepository を作成します
func NewIndexRepository(db DBTX) *IndexRepository {
	return &IndexRepository{db: db}
}

// Replace は保存済みのインデックスを丸ごと置き換える
// 部分的な置き換えを防ぐため、トランザクション内の DBTX で呼び出すこと
func (r *IndexRepository) Replace(ctx context.Context, docs []indexing.Document, index *indexing.Index) error {
	if index == nil {
		return fmt.Errorf("index is required")
	}

	if err := AcquireXactLock(ctx, r.db, indexLockID); err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}

	known := make(map[uuid.UUID]bool, len(docs))
	for _, doc := range docs {
		if known[doc.ID] {
			continue
		}
		if err := r.insertDocument(ctx, doc.ID, doc.Source, doc.ContentType); err != nil {
			return err
		}
		known[doc.ID] = true
	}

	var (
		position  int
		insertErr error
	)
	index.Each(func(chunk indexing.Chunk, vector []float32) bool {
		if !known[chunk.DocumentID] {
			if insertErr = r.insertDocument(ctx, chunk.DocumentID, "", "text/plain"); insertErr != nil {
				return false
			}
			known[chunk.DocumentID] = true
		}

		_, insertErr = r.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, position, ordinal, start_offset, end_offset, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			UUIDToPgtype(chunk.ID),
			UUIDToPgtype(chunk.DocumentID),
			position,
			chunk.Ordinal,
			chunk.StartOffset,
			chunk.EndOffset,
			chunk.Text,
			pgvector.NewVector(vector),
		)
		if insertErr != nil {
			insertErr = fmt.Errorf("failed to insert chunk %d: %w", position, insertErr)
			return false
		}
		position++
		return true
	})
	if insertErr != nil {
		return insertErr
	}

	return nil
}

func (r *IndexRepository) insertDocument(ctx context.Context, id uuid.UUID, source, contentType string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (id, source, content_type) VALUES ($1, $2, $3)`,
		UUIDToPgtype(id),
		StringToNullableText(source),
		contentType,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("duplicate document %s: %w", id, err)
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Load は保存済みのインデックスを追加順のまま復元する
// 1件も保存されていない場合は ErrIndexNotFound を返す
func (r *IndexRepository) Load(ctx context.Context) (*indexing.Index, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, ordinal, start_offset, end_offset, content, embedding
		 FROM chunks
		 ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	index := indexing.NewIndex()
	for rows.Next() {
		var (
			id, documentID pgtype.UUID
			chunk          indexing.Chunk
			embedding      pgvector.Vector
		)
		if err := rows.Scan(&id, &documentID, &chunk.Ordinal, &chunk.StartOffset, &chunk.EndOffset, &chunk.Text, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.ID = PgtypeToUUID(id)
		chunk.DocumentID = PgtypeToUUID(documentID)

		if err := index.Add(chunk, embedding.Slice()); err != nil {
			return nil, fmt.Errorf("failed to restore chunk %s: %w", chunk.ID, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	if index.Len() == 0 {
		return nil, ErrIndexNotFound
	}

	return index, nil
}

// ListDocuments は保存済みの文書一覧を返す
func (r *IndexRepository) ListDocuments(ctx context.Context) ([]StoredDocument, error) {
	rows, err := r.db.Query(ctx,
		`SELECT d.id, d.source, d.content_type, d.indexed_at, count(c.id)
		 FROM documents d
		 LEFT JOIN chunks c ON c.document_id = d.id
		 GROUP BY d.id
		 ORDER BY min(c.position) NULLS LAST, d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []StoredDocument
	for rows.Next() {
		var (
			id        pgtype.UUID
			source    pgtype.Text
			indexedAt pgtype.Timestamptz
			doc       StoredDocument
		)
		if err := rows.Scan(&id, &source, &doc.ContentType, &indexedAt, &doc.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.ID = PgtypeToUUID(id)
		doc.Source = PgtextToString(source)
		doc.IndexedAt = PgtypeToTime(indexedAt)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	return docs, nil
}
