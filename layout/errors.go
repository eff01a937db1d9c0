package layout

import (
	"errors"
	"fmt"
)

// ErrorCode 错误类型
type ErrorCode string

const (
	// ErrDocumentOpen 源文件无法读取或已损坏，整个任务失败
	ErrDocumentOpen ErrorCode = "DOCUMENT_OPEN"
	// ErrPageExtraction 单页解析失败，跳过该页
	ErrPageExtraction ErrorCode = "PAGE_EXTRACTION"
	// ErrImageDecode 图片数据缺失或损坏，跳过该图片
	ErrImageDecode ErrorCode = "IMAGE_DECODE"
	// ErrPageRender 页面无法渲染，跳过该页
	ErrPageRender ErrorCode = "PAGE_RENDER"
	// ErrFontFitOverflow 缩到最小字号仍放不下，照常绘制并记录警告
	ErrFontFitOverflow ErrorCode = "FONT_FIT_OVERFLOW"
	// ErrDocumentAssembly 输出写入失败，整个任务失败
	ErrDocumentAssembly ErrorCode = "DOCUMENT_ASSEMBLY"
)

// ErrNoContent 文档中没有任何可处理的页面
var ErrNoContent = errors.New("文档没有可处理的页面")

// PDFError PDF 处理错误
type PDFError struct {
	Code    ErrorCode
	Message string
	Page    int
	Cause   error
}

func (e *PDFError) Error() string {
	msg := e.Message
	if e.Page > 0 {
		msg = fmt.Sprintf("第 %d 页: %s", e.Page, msg)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *PDFError) Unwrap() error {
	return e.Cause
}

// Fatal 是否需要中止整个任务
func (e *PDFError) Fatal() bool {
	return e.Code == ErrDocumentOpen || e.Code == ErrDocumentAssembly
}

// NewPDFError 创建错误
func NewPDFError(code ErrorCode, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Cause: cause}
}

// NewPageError 创建带页码的错误
func NewPageError(code ErrorCode, page int, message string, cause error) *PDFError {
	return &PDFError{Code: code, Message: message, Page: page, Cause: cause}
}

// IsCode 判断错误链中是否包含指定类型的 PDFError
func IsCode(err error, code ErrorCode) bool {
	var pdfErr *PDFError
	if errors.As(err, &pdfErr) {
		return pdfErr.Code == code
	}
	return false
}
