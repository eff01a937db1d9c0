package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("PDFTR_SERVER_PORT", "")
	t.Setenv("PDFTR_TRANSLATOR_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, int64(100), cfg.Server.MaxUploadMB)
	assert.Equal(t, "gemini", cfg.Translator.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Translator.Model)
	assert.Equal(t, "Hinglish", cfg.Translator.TargetLanguage)
	assert.Equal(t, 2*time.Second, cfg.Translator.RetryInterval)
	assert.Equal(t, 60*time.Second, cfg.Translator.Timeout)
	assert.Equal(t, 0.95, cfg.Render.ShrinkRatio)
	assert.Equal(t, 5.0, cfg.Render.Floor)
	assert.True(t, cfg.Extract.OCR)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "outputs", cfg.Storage.S3.Prefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Translator.APIKey)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDFTR_TRANSLATOR_MODEL", "gpt-4o-mini")
	t.Setenv("PDFTR_RENDER_WORKERS", "8")
	t.Setenv("PDFTR_STORAGE_S3_BUCKET", "translated")
	t.Setenv("PDFTR_EXTRACT_OCR", "false")
	t.Setenv("PORT", "9000")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Translator.Model)
	assert.Equal(t, 8, cfg.Render.Workers)
	assert.Equal(t, "translated", cfg.Storage.S3.Bucket)
	assert.False(t, cfg.Extract.OCR)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	yaml := "translator:\n  provider: openai\n  concurrency: 2\nrender:\n  font_path: /fonts/NotoSans.ttf\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Translator.Provider)
	assert.Equal(t, 2, cfg.Translator.Concurrency)
	assert.Equal(t, "/fonts/NotoSans.ttf", cfg.Render.FontPath)
	// 未配置的键保持默认值
	assert.Equal(t, 1.1, cfg.Render.Leading)
}

// TestGoogleAPIKeyFallback 未配置 api_key 时读取 GOOGLE_API_KEY
func TestGoogleAPIKeyFallback(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOOGLE_API_KEY=from-dotenv\n"), 0600))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Translator.APIKey)

	t.Setenv("GOOGLE_API_KEY", "from-env")
	cfg, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Translator.APIKey)

	t.Setenv("PDFTR_TRANSLATOR_API_KEY", "explicit")
	cfg, err = LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Translator.APIKey)
}

func TestSaveAPIKey(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OTHER=1\nGOOGLE_API_KEY=old\n"), 0600))

	path, err := SaveAPIKey(dir, " new-key ")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OTHER=1\nGOOGLE_API_KEY=new-key\n", string(data))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, "new-key", cfg.Translator.APIKey)

	_, err = SaveAPIKey(dir, "  ")
	assert.Error(t, err)
}
