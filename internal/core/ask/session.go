package ask

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jinford/moodrag/internal/core/indexing"
)

// IndexSource は現在有効な Index を提供する
type IndexSource interface {
	Current() *indexing.Index
}

// TurnRecorder は確定したターンを永続化する
type TurnRecorder interface {
	AppendTurn(ctx context.Context, sessionID uuid.UUID, turn Turn) error
}

// Session は1ユーザーとの会話状態を保持する
// 同一セッション内の Ask は直列化され、各ターンは確定した履歴を基に処理される
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	service  *AskService
	indexes  IndexSource
	history  History
	recorder TurnRecorder
	logger   *slog.Logger
}

// SessionOption は Session のオプション設定
type SessionOption func(*Session)

// WithSessionID はセッションIDを指定する
func WithSessionID(id uuid.UUID) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithHistory は既存の履歴からセッションを再開する
func WithHistory(history History) SessionOption {
	return func(s *Session) {
		s.history = history
	}
}

// WithTurnRecorder はターンの永続化先を設定する
func WithTurnRecorder(recorder TurnRecorder) SessionOption {
	return func(s *Session) {
		s.recorder = recorder
	}
}

// WithSessionLogger は Session にロガーを設定する
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession は新しい Session を作成する
func NewSession(service *AskService, indexes IndexSource, opts ...SessionOption) *Session {
	s := &Session{
		id:      uuid.New(),
		service: service,
		indexes: indexes,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ID はセッションIDを返す
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Ask は質問に回答し、成功した場合のみ履歴にターンを追加する
func (s *Session) Ask(ctx context.Context, question string) (*AskResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var index *indexing.Index
	if s.indexes != nil {
		index = s.indexes.Current()
	}

	result, updated, err := s.service.Ask(ctx, s.history, index, question)
	if err != nil {
		return nil, err
	}
	s.history = updated

	if s.recorder != nil {
		if last, ok := updated.Last().Get(); ok {
			if err := s.recorder.AppendTurn(ctx, s.id, last); err != nil {
				s.logger.Warn("failed to record turn",
					"sessionID", s.id,
					"error", err,
				)
			}
		}
	}

	return result, nil
}

// History は現在の履歴を返す
func (s *Session) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

// Reset は履歴を破棄して新しい会話を開始する
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = History{}
	s.logger.Info("session reset", "sessionID", s.id)
}
