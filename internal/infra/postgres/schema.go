package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema はテーブルと pgvector 拡張を作成する（既に存在する場合は何もしない）
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		if IsInsufficientPrivilege(err) {
			return fmt.Errorf("failed to create schema (the vector extension may need to be installed by a superuser): %w", err)
		}
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
