package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jinford/moodrag/internal/core/ask"
)

// TurnRepository は会話のターンを PostgreSQL に記録する
type TurnRepository struct {
	db DBTX
}

// NewTurnRepository は新しい TurnRepository を作成します
func NewTurnRepository(db DBTX) *TurnRepository {
	return &TurnRepository{db: db}
}

// AppendTurn はセッションに確定したターンを追加する
func (r *TurnRepository) AppendTurn(ctx context.Context, sessionID uuid.UUID, turn ask.Turn) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO conversation_turns (session_id, question, answer, asked_at)
		 VALUES ($1, $2, $3, COALESCE($4, now()))`,
		UUIDToPgtype(sessionID),
		turn.Question,
		turn.Answer,
		TimeToPgtype(turn.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

// ListTurns はセッションの履歴を古い順に返す
func (r *TurnRepository) ListTurns(ctx context.Context, sessionID uuid.UUID) (ask.History, error) {
	rows, err := r.db.Query(ctx,
		`SELECT question, answer, asked_at
		 FROM conversation_turns
		 WHERE session_id = $1
		 ORDER BY id`,
		UUIDToPgtype(sessionID),
	)
	if err != nil {
		return ask.History{}, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ask.Turn
	for rows.Next() {
		var (
			turn    ask.Turn
			askedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&turn.Question, &turn.Answer, &askedAt); err != nil {
			return ask.History{}, fmt.Errorf("failed to scan turn: %w", err)
		}
		turn.Timestamp = PgtypeToTime(askedAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return ask.History{}, fmt.Errorf("failed to read turns: %w", err)
	}

	return ask.NewHistory(turns...), nil
}

// インターフェース実装の確認
var _ ask.TurnRecorder = (*TurnRepository)(nil)
