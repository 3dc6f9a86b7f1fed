package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrCodeUniqueViolation       = "23505"
	pgErrCodeInsufficientPrivilege = "42501"
)

// ErrIndexNotFound は保存済みのインデックスが存在しない場合のエラー
var ErrIndexNotFound = errors.New("stored index not found")

// IsUniqueViolation は PostgreSQL の unique_violation(23505) かどうかを判定します
func IsUniqueViolation(err error) bool {
	return hasCode(err, pgErrCodeUniqueViolation)
}

// IsInsufficientPrivilege は PostgreSQL の insufficient_privilege(42501) かどうかを判定します
func IsInsufficientPrivilege(err error) bool {
	return hasCode(err, pgErrCodeInsufficientPrivilege)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
