package translator

import (
	"log"
	"os"

	"github.com/SilentEigen/pdf-hindi-translator/config"
	"github.com/SilentEigen/pdf-hindi-translator/layout"
)

// ProviderConfigFrom 由服务配置生成提供商配置
func ProviderConfigFrom(cfg config.TranslatorConfig) ProviderConfig {
	return ProviderConfig{
		Type:        ProviderType(cfg.Provider),
		APIKey:      cfg.APIKey,
		APIURL:      cfg.APIURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}.WithDefaults()
}

// NewClientFromConfig 按配置创建带重试与超时设置的客户端
func NewClientFromConfig(provider ProviderConfig, cfg config.TranslatorConfig, cache *Cache, userPrompt string) (*TranslatorClient, error) {
	client, err := NewTranslatorClient(provider, cache, cfg.TargetLanguage, userPrompt)
	if err != nil {
		return nil, err
	}
	client.WithRetry(cfg.RetryTimes, cfg.RetryInterval)
	if cfg.Timeout > 0 {
		client.WithTimeout(cfg.Timeout)
	}
	return client, nil
}

// FitParamsFrom 渲染配置转换为缩放参数
func FitParamsFrom(cfg config.RenderConfig) layout.FitParams {
	return layout.FitParams{
		Padding:     cfg.Padding,
		Leading:     cfg.Leading,
		Floor:       cfg.Floor,
		ShrinkRatio: cfg.ShrinkRatio,
	}
}

// NewFontSetFrom 加载配置的字体；未配置时按目标语言查找系统字体，找不到则只用内置字体
func NewFontSetFrom(cfg config.RenderConfig, targetLanguage string) (*layout.FontSet, error) {
	fontPath := cfg.FontPath
	if fontPath == "" {
		fontPath = layout.NewSystemFontDetector().GetSystemFontPath(targetLanguage)
		if fontPath != "" {
			log.Printf("使用系统字体: %s", fontPath)
		}
	}
	return layout.NewFontSet(fontPath)
}

// NewLoggerFrom 按日志配置创建记录器：配置了目录时写文件，否则写标准输出
func NewLoggerFrom(cfg config.LogConfig, name string) (*layout.PDFLogger, error) {
	level := layout.ParseLogLevel(cfg.Level)
	if cfg.Dir == "" {
		return layout.NewPDFLogger(os.Stdout, level), nil
	}
	return layout.NewFileLogger(cfg.Dir, name, level, cfg.Console)
}
