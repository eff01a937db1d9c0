//go:build ocr

// Package ocr 通过 gosseract 调用 Tesseract 识别图片中的文字。
// 需要系统安装 Tesseract（apt-get install tesseract-ocr）。
package ocr

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Enabled 编译时是否启用了 OCR
const Enabled = true

// Client Tesseract 客户端，Recognize 可被多个协程并发调用
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New 创建客户端；language 为空时使用 "eng"，多个语言用 "+" 连接
func New(language string) (*Client, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置OCR语言失败: %w", err)
	}
	return &Client{client: client}, nil
}

// Close 释放资源
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// RecognizeImage 识别图片（PNG、JPEG、TIFF 等）中的文字
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("设置图片失败: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR识别失败: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Recognize 尽力识别，失败时返回空串
func (c *Client) Recognize(imageData []byte) string {
	text, err := c.RecognizeImage(imageData)
	if err != nil {
		log.Printf("OCR警告: %v", err)
		return ""
	}
	return text
}
