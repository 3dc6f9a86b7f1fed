package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature は回答生成のデフォルト温度（ほぼ決定的）
	DefaultTemperature = 0.01

	// DefaultTopP は回答生成のデフォルトtop_p
	DefaultTopP = 1.0

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// Client は OpenAI 互換APIを使用した LLM クライアント実装
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	timeout     time.Duration
	backoff     time.Duration
	logger      *slog.Logger
}

type clientOptions struct {
	model       string
	baseURL     string
	temperature float64
	topP        float64
	maxTokens   int
	timeout     time.Duration
	backoff     time.Duration
	logger      *slog.Logger
}

// ClientOption は Client のオプション設定
type ClientOption func(*clientOptions)

// WithModel はモデル名を上書きする
func WithModel(model string) ClientOption {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL はOpenAI互換APIのエンドポイントを指定する
func WithBaseURL(baseURL string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = baseURL
	}
}

// WithTemperature は生成時の温度を指定する
func WithTemperature(temperature float64) ClientOption {
	return func(o *clientOptions) {
		o.temperature = temperature
	}
}

// WithTopP は生成時のtop_pを指定する
func WithTopP(topP float64) ClientOption {
	return func(o *clientOptions) {
		o.topP = topP
	}
}

// WithMaxTokens は生成トークン数の上限を指定する（0 は無制限）
func WithMaxTokens(maxTokens int) ClientOption {
	return func(o *clientOptions) {
		o.maxTokens = maxTokens
	}
}

// WithTimeout はAPIコールのタイムアウトを指定する
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.timeout = timeout
	}
}

// WithClientLogger は Client にロガーを設定する
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// withBackoff はリトライ間隔の基底時間を差し替える
func withBackoff(backoff time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.backoff = backoff
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := clientOptions{
		model:       DefaultModel,
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
		timeout:     DefaultTimeout,
		backoff:     BaseBackoff,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	return &Client{
		client:      openai.NewClient(requestOptions(apiKey, options.baseURL)...),
		model:       options.model,
		temperature: options.temperature,
		topP:        options.topP,
		maxTokens:   options.maxTokens,
		timeout:     options.timeout,
		backoff:     options.backoff,
		logger:      options.logger,
	}, nil
}

// requestOptions はSDK共通のリクエストオプションを組み立てる
// レート制限のリトライは自前で行うため、SDK側のリトライは無効にする
func requestOptions(apiKey, baseURL string) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// GenerateCompletion はプロンプトを1件のユーザーメッセージとして送信し、回答テキストを返す
func (c *Client) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * c.backoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			c.logger.Warn("rate limited, retrying",
				"attempt", attempt,
				"backoff", backoffDuration,
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(c.temperature),
			TopP:        openai.Float(c.topP),
		}

		if c.maxTokens > 0 {
			params.MaxTokens = openai.Int(int64(c.maxTokens))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return "", fmt.Errorf("OpenAI API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", fmt.Errorf("no completion choices returned")
		}

		c.logger.Debug("completion generated",
			"model", completion.Model,
			"tokensUsed", completion.Usage.TotalTokens,
		)

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}
