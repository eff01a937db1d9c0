package translator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SilentEigen/pdf-hindi-translator/layout"
)

// TranslationError 单段文本翻译失败，重试后仍不成功
type TranslationError struct {
	Text     string
	Attempts int
	Cause    error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("翻译失败（尝试 %d 次）: %v", e.Attempts, e.Cause)
}

func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// ErrRejectedReply 模型回复为空或是拒绝说明
var ErrRejectedReply = errors.New("模型回复无效")

// TranslatorClient 翻译客户端（支持多提供商）
type TranslatorClient struct {
	Provider       Provider
	Cache          *Cache
	TargetLanguage string
	SystemPrompt   string
	RetryTimes     int
	RetryInterval  time.Duration
	// Timeout 单次请求超时，<=0 表示不限制
	Timeout time.Duration
	Logger  *layout.PDFLogger

	model string
}

// NewTranslatorClient 创建翻译客户端
func NewTranslatorClient(config ProviderConfig, cache *Cache, targetLanguage, userPrompt string) (*TranslatorClient, error) {
	config = config.WithDefaults()
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	if targetLanguage == "" {
		targetLanguage = DefaultTargetLanguage
	}

	return &TranslatorClient{
		Provider:       provider,
		Cache:          cache,
		TargetLanguage: targetLanguage,
		SystemPrompt:   BuildSystemPrompt(targetLanguage, userPrompt),
		RetryTimes:     3,
		RetryInterval:  2 * time.Second,
		Timeout:        60 * time.Second,
		Logger:         layout.NewNopLogger(),
		model:          config.Model,
	}, nil
}

// WithRetry 设置重试参数
func (c *TranslatorClient) WithRetry(times int, interval time.Duration) *TranslatorClient {
	c.RetryTimes = times
	c.RetryInterval = interval
	return c
}

// WithTimeout 设置单次请求超时
func (c *TranslatorClient) WithTimeout(timeout time.Duration) *TranslatorClient {
	c.Timeout = timeout
	return c
}

// WithLogger 设置日志记录器
func (c *TranslatorClient) WithLogger(logger *layout.PDFLogger) *TranslatorClient {
	if logger != nil {
		c.Logger = logger
	}
	return c
}

// Translate 翻译文本，任何失败都返回原文
func (c *TranslatorClient) Translate(ctx context.Context, text string) string {
	result, err := c.TranslateE(ctx, text)
	if err != nil {
		c.Logger.Warn("翻译失败，使用原文", map[string]interface{}{
			"错误": err.Error(),
			"文本": truncate(text, 60),
		})
		return text
	}
	return result
}

// TranslateE 翻译文本（带缓存与重试）；跳过规则命中时原样返回
func (c *TranslatorClient) TranslateE(ctx context.Context, text string) (string, error) {
	if ShouldSkip(text) {
		return text, nil
	}

	key := CacheKey(text, c.TargetLanguage, c.model, c.SystemPrompt)
	if cached, ok := c.Cache.Get(key); ok {
		return cached, nil
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= c.RetryTimes; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", &TranslationError{Text: text, Attempts: attempts, Cause: ctx.Err()}
			case <-time.After(c.RetryInterval):
			}
		}
		attempts++

		result, err := c.translateOnce(ctx, text)
		if err == nil {
			if err := c.Cache.Set(key, result); err != nil {
				c.Logger.Warn("写入翻译缓存失败", map[string]interface{}{"错误": err.Error()})
			}
			return result, nil
		}

		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			break
		}
		c.Logger.Debug("翻译请求失败，准备重试", map[string]interface{}{
			"尝试": attempts,
			"错误": err.Error(),
		})
	}

	return "", &TranslationError{Text: text, Attempts: attempts, Cause: lastErr}
}

func (c *TranslatorClient) translateOnce(ctx context.Context, text string) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	reply, err := c.Provider.Translate(ctx, text, c.SystemPrompt)
	if err != nil {
		return "", err
	}
	cleaned, ok := CleanReply(reply)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRejectedReply, truncate(reply, 80))
	}
	return cleaned, nil
}

// retryable 拒绝回复和客户端错误不重试
func retryable(err error) bool {
	if errors.Is(err, ErrRejectedReply) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
