package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding はOpenAIのチャットモデルと共通のエンコーディング
const DefaultEncoding = "cl100k_base"

// TokenCounter は tiktoken を利用してトークン数をカウントする
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は cl100k_base エンコーディングの TokenCounter を作成する
func NewTokenCounter() (*TokenCounter, error) {
	return NewTokenCounterWithEncoding(DefaultEncoding)
}

// NewTokenCounterWithEncoding はエンコーディング名を指定して TokenCounter を作成する
func NewTokenCounterWithEncoding(name string) (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TokenCounter{encoding: encoding}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// EstimateTokens はエンコーディングを使わずにトークン数を概算する（3文字で1トークン）
func EstimateTokens(text string) int {
	return len([]rune(text)) / 3
}

// Estimator は EstimateTokens でトークン数を数える
type Estimator struct{}

// CountTokens はテキストのトークン数を概算する
func (Estimator) CountTokens(text string) int {
	return EstimateTokens(text)
}
