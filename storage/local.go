package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage 本地目录：{BaseDir}/{session}/outputs/{name}
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage 创建本地存储
func NewLocalStorage(baseDir string) *LocalStorage {
	if baseDir == "" {
		baseDir = filepath.Join("data", "users")
	}
	return &LocalStorage{BaseDir: baseDir}
}

// Save 先写临时文件再重命名
func (s *LocalStorage) Save(ctx context.Context, sessionID, name string, r io.Reader) (string, error) {
	target, err := localPath(s.BaseDir, sessionID, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("关闭文件失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	return target, nil
}

// Open 打开文件
func (s *LocalStorage) Open(ctx context.Context, sessionID, name string) (io.ReadCloser, error) {
	target, err := localPath(s.BaseDir, sessionID, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

// Delete 删除文件，不存在时不报错
func (s *LocalStorage) Delete(ctx context.Context, sessionID, name string) error {
	target, err := localPath(s.BaseDir, sessionID, name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// SessionDir 会话的工作目录，用于上传文件与中间结果
func (s *LocalStorage) SessionDir(sessionID string) (string, error) {
	session, err := cleanSegment(sessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.BaseDir, session), nil
}
