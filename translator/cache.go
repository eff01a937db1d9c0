package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache 翻译缓存，每条译文存为一个以键哈希命名的文件
type Cache struct {
	dir      string
	mutex    sync.RWMutex
	disabled bool // 禁用读取，写入照常
}

// NewCache 创建缓存
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// DisableCache 禁用缓存读取（用于强制重新翻译）
func (c *Cache) DisableCache() {
	c.mutex.Lock()
	c.disabled = true
	c.mutex.Unlock()
}

// EnableCache 启用缓存
func (c *Cache) EnableCache() {
	c.mutex.Lock()
	c.disabled = false
	c.mutex.Unlock()
}

// Get 获取缓存
func (c *Cache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.disabled {
		return "", false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}

	return string(data), true
}

// Set 设置缓存
func (c *Cache) Set(key, value string) error {
	if c == nil {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	return os.WriteFile(c.path(key), []byte(value), 0644)
}

func (c *Cache) path(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".txt")
}

// CacheKey 生成缓存键；模型或提示词变化时不会命中旧译文
func CacheKey(text, targetLanguage, model, systemPrompt string) string {
	data := map[string]string{
		"text":           text,
		"targetLanguage": targetLanguage,
		"model":          model,
		"prompt":         systemPrompt,
	}
	jsonData, _ := json.Marshal(data)
	return string(jsonData)
}
