//go:build !ocr

// Package ocr 通过 gosseract 调用 Tesseract 识别图片中的文字。
//
// 这是未设置 "ocr" 构建标签时的空实现，New 总是返回 ErrOCRNotEnabled。
// 启用 OCR 需要安装 Tesseract 并使用 go build -tags ocr 重新编译。
package ocr

import "errors"

// ErrOCRNotEnabled 编译时未启用 OCR
var ErrOCRNotEnabled = errors.New("未启用OCR支持，请使用 -tags ocr 重新编译")

// Enabled 编译时是否启用了 OCR
const Enabled = false

// Client 空实现
type Client struct{}

// New 返回 ErrOCRNotEnabled
func New(language string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close 对 nil 客户端也是安全的
func (c *Client) Close() error {
	return nil
}

// RecognizeImage 返回 ErrOCRNotEnabled
func (c *Client) RecognizeImage(imageData []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// Recognize 总是返回空串
func (c *Client) Recognize(imageData []byte) string {
	return ""
}
