// Package core はRAGコア（インデックス構築・検索・会話）で共有するエラー分類を定義する
package core

import "errors"

var (
	// ErrInvalidArgument は呼び出し側の入力が不正な場合のエラー（k <= 0、空の質問、不正なチャンク設定など）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyDocument はインデックス化する内容が存在しない場合のエラー
	ErrEmptyDocument = errors.New("empty document")

	// ErrEmbeddingFailure はEmbedding生成（インデックス構築時・検索時）に失敗した場合のエラー
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrCompletionFailure は回答生成（LLM呼び出し）に失敗した場合のエラー
	ErrCompletionFailure = errors.New("completion failure")
)
