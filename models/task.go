package models

import "time"

// TaskStatus 任务状态
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

type TranslateTask struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"-"`
	SourceFile     string     `json:"sourceFile"`
	TargetLanguage string     `json:"targetLanguage"`
	Status         TaskStatus `json:"status"`
	Progress       float64    `json:"progress"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    time.Time  `json:"completedAt,omitempty"`
	// OutputName 存储中的文件名，OutputLocation 为存储返回的位置
	OutputName     string `json:"-"`
	OutputLocation string `json:"outputLocation,omitempty"`
	Pages          int    `json:"pages,omitempty"`
	SkippedPages   []int  `json:"skippedPages,omitempty"`
	Overflows      int    `json:"overflows,omitempty"`
}

type LLMConfig struct {
	Provider    string  `json:"provider"` // openai, deepseek, claude, gemini, ollama
	APIKey      string  `json:"apiKey"`
	APIURL      string  `json:"apiUrl"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type TranslateRequest struct {
	TargetLanguage   string    `json:"targetLanguage"`
	LLMConfig        LLMConfig `json:"llmConfig"`
	UserPrompt       string    `json:"userPrompt,omitempty"`
	ForceRetranslate bool      `json:"forceRetranslate,omitempty"` // 是否强制重新翻译（忽略缓存）
	MaxPages         int       `json:"pages,omitempty"`
	OCR              bool      `json:"ocr"`
}
