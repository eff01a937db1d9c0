// Package config 从环境变量、config.yaml 与 .env 读取配置
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "PDFTR"

// Config 全部配置
type Config struct {
	Server     ServerConfig
	Translator TranslatorConfig
	Render     RenderConfig
	Extract    ExtractConfig
	Cache      CacheConfig
	Storage    StorageConfig
	Log        LogConfig
}

// ServerConfig HTTP 服务
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	Mode          string        `mapstructure:"mode"`
	DataDir       string        `mapstructure:"data_dir"`
	SessionMaxAge int           `mapstructure:"session_max_age"`
}

// TranslatorConfig 翻译服务
type TranslatorConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	APIURL         string        `mapstructure:"api_url"`
	Model          string        `mapstructure:"model"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	TargetLanguage string        `mapstructure:"target_language"`
	RetryTimes     int           `mapstructure:"retry_times"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// RenderConfig 渲染与组装
type RenderConfig struct {
	FontPath    string  `mapstructure:"font_path"`
	Padding     float64 `mapstructure:"padding"`
	Leading     float64 `mapstructure:"leading"`
	Floor       float64 `mapstructure:"floor"`
	ShrinkRatio float64 `mapstructure:"shrink_ratio"`
	Workers     int     `mapstructure:"workers"`
}

// ExtractConfig 提取
type ExtractConfig struct {
	MaxPages    int    `mapstructure:"max_pages"`
	OCR         bool   `mapstructure:"ocr"`
	OCRLanguage string `mapstructure:"ocr_language"`
	AssetDir    string `mapstructure:"asset_dir"`
}

// CacheConfig 翻译缓存
type CacheConfig struct {
	Dir     string `mapstructure:"dir"`
	Enabled bool   `mapstructure:"enabled"`
}

// StorageConfig 输出存储
type StorageConfig struct {
	Backend string   `mapstructure:"backend"`
	Dir     string   `mapstructure:"dir"`
	S3      S3Config `mapstructure:"s3"`
}

// S3Config S3 兼容存储
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LogConfig 日志
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	Dir     string `mapstructure:"dir"`
}

// Load 从当前目录读取配置
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom 依次读取默认值、dir 下的 config.yaml、环境变量。
// PDFTR_TRANSLATOR_API_KEY 未设置时使用 GOOGLE_API_KEY（环境变量或 dir/.env）。
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	for key := range defaults {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Translator.APIKey == "" {
		cfg.Translator.APIKey = googleAPIKey(dir)
	}
	// 部署平台注入的 PORT
	if port := os.Getenv("PORT"); port != "" && os.Getenv(EnvPrefix+"_SERVER_PORT") == "" {
		cfg.Server.Port = ":" + port
	}
	return cfg, nil
}

var defaults = map[string]interface{}{
	"server.port":            ":8080",
	"server.read_timeout":    "60s",
	"server.write_timeout":   "300s",
	"server.max_upload_mb":   100,
	"server.mode":            "release",
	"server.data_dir":        "data/users",
	"server.session_max_age": 86400 * 30,

	"translator.provider":        "gemini",
	"translator.api_key":         "",
	"translator.api_url":         "",
	"translator.model":           "gemini-2.0-flash",
	"translator.temperature":     0.3,
	"translator.max_tokens":      4096,
	"translator.target_language": "Hinglish",
	"translator.retry_times":     3,
	"translator.retry_interval":  "2s",
	"translator.timeout":         "60s",
	"translator.concurrency":     4,

	"render.font_path":    "",
	"render.padding":      2.0,
	"render.leading":      1.1,
	"render.floor":        5.0,
	"render.shrink_ratio": 0.95,
	"render.workers":      4,

	"extract.max_pages":    0,
	"extract.ocr":          true,
	"extract.ocr_language": "eng",
	"extract.asset_dir":    "",

	"cache.dir":     ".translation_cache",
	"cache.enabled": true,

	"storage.backend":       "local",
	"storage.dir":           "data/users",
	"storage.s3.region":     "us-east-1",
	"storage.s3.bucket":     "",
	"storage.s3.endpoint":   "",
	"storage.s3.access_key": "",
	"storage.s3.secret_key": "",
	"storage.s3.prefix":     "outputs",

	"log.level":   "info",
	"log.console": true,
	"log.dir":     "logs",
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// googleAPIKey 环境变量优先，其次 dir/.env
func googleAPIKey(dir string) string {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key
	}
	env := viper.New()
	env.SetConfigFile(filepath.Join(dir, ".env"))
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return ""
	}
	return env.GetString(APIKeyEnv)
}
