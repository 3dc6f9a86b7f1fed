package openai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CompletionClient はプロンプトから回答を生成するクライアント
type CompletionClient interface {
	GenerateCompletion(ctx context.Context, prompt string) (string, error)
}

// RateLimiter は1分あたりのリクエスト数を制限するトークンバケット
type RateLimiter struct {
	mu         sync.Mutex
	perMinute  int
	tokens     int
	lastRefill time.Time
	now        func() time.Time
	interval   time.Duration
}

// NewRateLimiter は新しい RateLimiter を作成する
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute:  perMinute,
		tokens:     perMinute,
		lastRefill: time.Now(),
		now:        time.Now,
		interval:   time.Second,
	}
}

// Wait はトークンを1つ取得できるまで待機する
// ctx がキャンセルされた場合はエラーを返す
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.take() {
			return nil
		}
		select {
		case <-time.After(rl.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Available は現在利用可能なトークン数を返す
func (rl *RateLimiter) Available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) take() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

// refill は経過した分数に応じてトークンを補充する（ロック取得済みの前提）
func (rl *RateLimiter) refill() {
	elapsed := rl.now().Sub(rl.lastRefill)
	if elapsed < time.Minute {
		return
	}
	minutes := int(elapsed / time.Minute)
	rl.tokens = min(rl.tokens+minutes*rl.perMinute, rl.perMinute)
	rl.lastRefill = rl.lastRefill.Add(time.Duration(minutes) * time.Minute)
}

// ThrottledClient はレート制限付きの CompletionClient
type ThrottledClient struct {
	client  CompletionClient
	limiter *RateLimiter
}

// NewThrottledClient は1分あたり perMinute 回までに呼び出しを制限するクライアントを作成する
func NewThrottledClient(client CompletionClient, perMinute int) *ThrottledClient {
	return &ThrottledClient{
		client:  client,
		limiter: NewRateLimiter(perMinute),
	}
}

// GenerateCompletion はレート制限に従って回答を生成する
func (c *ThrottledClient) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return c.client.GenerateCompletion(ctx, prompt)
}
