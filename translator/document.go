package translator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/SilentEigen/pdf-hindi-translator/layout"
)

// DocumentType 文档类型
type DocumentType string

const (
	DocumentTypePDF DocumentType = "pdf"
)

// DetectDocumentType 根据扩展名判断文档类型
func DetectDocumentType(filePath string) (DocumentType, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return DocumentTypePDF, nil
	default:
		return "", fmt.Errorf("不支持的文件格式: %s，仅支持 .pdf 文件", ext)
	}
}

// ValidateDocument 验证文档文件
func ValidateDocument(filePath string) error {
	if _, err := DetectDocumentType(filePath); err != nil {
		return err
	}
	return layout.ValidatePDF(filePath)
}

// GetDocumentInfo 获取文档信息
func GetDocumentInfo(filePath string) (map[string]interface{}, error) {
	if _, err := DetectDocumentType(filePath); err != nil {
		return nil, err
	}

	pageCount, err := layout.GetPDFPageCount(filePath)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"type":  "PDF",
		"pages": pageCount,
	}, nil
}
