// Package storage 保存翻译输出。本地目录按会话隔离，S3 兼容存储用于部署环境。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/SilentEigen/pdf-hindi-translator/config"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("文件不存在")

// Storage 输出文件存储
type Storage interface {
	// Save 写入 session 下的文件，返回可用于下载的位置
	Save(ctx context.Context, sessionID, name string, r io.Reader) (string, error)
	// Open 读取 session 下的文件
	Open(ctx context.Context, sessionID, name string) (io.ReadCloser, error)
	// Delete 删除 session 下的文件
	Delete(ctx context.Context, sessionID, name string) error
}

// New 按配置创建存储后端
func New(cfg config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return NewLocalStorage(cfg.Dir), nil
	case "s3":
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("不支持的存储后端: %s", cfg.Backend)
	}
}

// cleanSegment 校验会话 ID 或文件名，防止路径穿越
func cleanSegment(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return "", fmt.Errorf("非法的路径片段: %q", s)
	}
	return s, nil
}

func objectKey(prefix, sessionID, name string) (string, error) {
	session, err := cleanSegment(sessionID)
	if err != nil {
		return "", err
	}
	file, err := cleanSegment(name)
	if err != nil {
		return "", err
	}
	return path.Join(prefix, session, file), nil
}

func localPath(base, sessionID, name string) (string, error) {
	session, err := cleanSegment(sessionID)
	if err != nil {
		return "", err
	}
	file, err := cleanSegment(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, session, "outputs", file), nil
}
