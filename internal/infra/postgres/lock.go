package postgres

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// indexLockID はインデックス置き換え処理を直列化するアドバイザリロックのID
var indexLockID = LockID("moodrag", "index")

// LockID は文字列から PostgreSQL アドバイザリロックのIDを生成する
func LockID(parts ...string) int64 {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
	}
	return int64(binary.BigEndian.Uint64(h.Sum(nil)[:8]))
}

// AcquireXactLock はトランザクションスコープのアドバイザリロックを取得する
// ロックはトランザクション終了時に自動的に解放される
func AcquireXactLock(ctx context.Context, db DBTX, lockID int64) error {
	if _, err := db.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", lockID); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}
