package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// APIKeyEnv .env 与环境变量中保存 Gemini 密钥的变量名
const APIKeyEnv = "GOOGLE_API_KEY"

// SaveAPIKey 把密钥写入 dir/.env，保留文件中的其他变量
func SaveAPIKey(dir, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("API Key 为空")
	}

	path := filepath.Join(dir, ".env")
	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
			name, _, _ := strings.Cut(line, "=")
			if strings.TrimSpace(name) == APIKeyEnv {
				continue
			}
			lines = append(lines, line)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("读取 .env 失败: %w", err)
	}
	lines = append(lines, APIKeyEnv+"="+key)

	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600); err != nil {
		return "", fmt.Errorf("写入 .env 失败: %w", err)
	}
	return path, nil
}
