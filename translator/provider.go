package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProviderType AI 提供商类型
type ProviderType string

const (
	ProviderOpenAI   ProviderType = "openai"
	ProviderDeepSeek ProviderType = "deepseek"
	ProviderClaude   ProviderType = "claude"
	ProviderGemini   ProviderType = "gemini"
	ProviderOllama   ProviderType = "ollama"
)

// Provider AI 提供商接口
type Provider interface {
	Translate(ctx context.Context, text, systemPrompt string) (string, error)
	GetName() string
}

// ProviderConfig 提供商配置
type ProviderConfig struct {
	Type        ProviderType `json:"type"`
	APIKey      string       `json:"apiKey"`
	APIURL      string       `json:"apiUrl"`
	Model       string       `json:"model"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"maxTokens"`
}

// defaultEndpoints 未配置 APIURL 时使用的地址；Gemini 的地址包含模型名
var defaultEndpoints = map[ProviderType]string{
	ProviderOpenAI:   "https://api.openai.com/v1/chat/completions",
	ProviderDeepSeek: "https://api.deepseek.com/chat/completions",
	ProviderClaude:   "https://api.anthropic.com/v1/messages",
	ProviderGemini:   "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent",
	ProviderOllama:   "http://localhost:11434/api/generate",
}

// defaultModels 未配置 Model 时使用的模型
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:   "gpt-4o-mini",
	ProviderDeepSeek: "deepseek-chat",
	ProviderClaude:   "claude-3-5-haiku-latest",
	ProviderGemini:   "gemini-2.0-flash",
	ProviderOllama:   "llama3",
}

// NeedsAPIKey 本地模型不需要密钥
func (t ProviderType) NeedsAPIKey() bool {
	return t != ProviderOllama
}

// WithDefaults 补全缺省的类型、模型和地址
func (c ProviderConfig) WithDefaults() ProviderConfig {
	c.Type = ProviderType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	if c.Type == "" {
		c.Type = ProviderGemini
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Type]
	}
	if c.APIURL == "" {
		c.APIURL = defaultEndpoints[c.Type]
		if c.Type == ProviderGemini {
			c.APIURL = fmt.Sprintf(c.APIURL, c.Model)
		}
	}
	return c
}

// APIError 提供商返回的非 200 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API 返回错误 (状态码 %d): %s", e.StatusCode, e.Body)
}

// Retryable 限流和服务端错误可以重试，其余客户端错误重试也不会成功
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// BaseProvider 基础提供商实现
type BaseProvider struct {
	Config     ProviderConfig
	HTTPClient *http.Client
}

// NewProvider 创建提供商实例
func NewProvider(config ProviderConfig) (Provider, error) {
	config = config.WithDefaults()
	if config.Type.NeedsAPIKey() && config.APIKey == "" {
		return nil, fmt.Errorf("%s 需要 API Key", config.Type)
	}

	base := &BaseProvider{
		Config: config,
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}

	switch config.Type {
	case ProviderOpenAI, ProviderDeepSeek:
		return &OpenAIProvider{BaseProvider: base}, nil
	case ProviderClaude:
		return &ClaudeProvider{BaseProvider: base}, nil
	case ProviderGemini:
		return &GeminiProvider{BaseProvider: base}, nil
	case ProviderOllama:
		return &OllamaProvider{BaseProvider: base}, nil
	default:
		return nil, fmt.Errorf("不支持的提供商类型: %s", config.Type)
	}
}

// postJSON 发送 JSON 请求并返回响应体
func (b *BaseProvider) postJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// OpenAIProvider OpenAI 兼容的提供商（包括 OpenAI、DeepSeek 等）
type OpenAIProvider struct {
	*BaseProvider
}

func (p *OpenAIProvider) GetName() string {
	return string(p.Config.Type)
}

func (p *OpenAIProvider) Translate(ctx context.Context, text, systemPrompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":       p.Config.Model,
		"temperature": p.Config.Temperature,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": wrapInput(text)},
		},
	}
	if p.Config.MaxTokens > 0 {
		reqBody["max_tokens"] = p.Config.MaxTokens
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, map[string]string{
		"Authorization": "Bearer " + p.Config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API 错误: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("API 未返回翻译结果")
	}

	return resp.Choices[0].Message.Content, nil
}

// ClaudeProvider Anthropic Claude 提供商
type ClaudeProvider struct {
	*BaseProvider
}

func (p *ClaudeProvider) GetName() string {
	return "claude"
}

func (p *ClaudeProvider) Translate(ctx context.Context, text, systemPrompt string) (string, error) {
	maxTokens := p.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	reqBody := map[string]interface{}{
		"model":       p.Config.Model,
		"max_tokens":  maxTokens,
		"temperature": p.Config.Temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": wrapInput(text)},
		},
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, map[string]string{
		"x-api-key":         p.Config.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API 错误: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("API 未返回翻译结果")
	}

	return resp.Content[0].Text, nil
}

// GeminiProvider Google Gemini 提供商
type GeminiProvider struct {
	*BaseProvider
}

func (p *GeminiProvider) GetName() string {
	return "gemini"
}

func (p *GeminiProvider) Translate(ctx context.Context, text, systemPrompt string) (string, error) {
	generationConfig := map[string]interface{}{
		"temperature": p.Config.Temperature,
	}
	if p.Config.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = p.Config.MaxTokens
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": systemPrompt + "\n\n" + wrapInput(text)},
				},
			},
		},
		"generationConfig": generationConfig,
	}

	// 密钥放在请求头中，URL 不带 key 参数
	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, map[string]string{
		"x-goog-api-key": p.Config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API 错误: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("API 未返回翻译结果")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// OllamaProvider Ollama 本地模型提供商
type OllamaProvider struct {
	*BaseProvider
}

func (p *OllamaProvider) GetName() string {
	return "ollama"
}

func (p *OllamaProvider) Translate(ctx context.Context, text, systemPrompt string) (string, error) {
	options := map[string]interface{}{
		"temperature": p.Config.Temperature,
	}
	if p.Config.MaxTokens > 0 {
		options["num_predict"] = p.Config.MaxTokens
	}

	reqBody := map[string]interface{}{
		"model":   p.Config.Model,
		"system":  systemPrompt,
		"prompt":  wrapInput(text),
		"stream":  false,
		"options": options,
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response string `json:"response"`
		Error    string `json:"error,omitempty"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("API 错误: %s", resp.Error)
	}
	if resp.Response == "" {
		return "", fmt.Errorf("API 未返回翻译结果")
	}

	return resp.Response, nil
}
